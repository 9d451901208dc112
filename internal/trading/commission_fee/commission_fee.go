package commission_fee

type CommissionFee interface {
	// Calculate the commission fee for a given signed quantity and returns the fee in USD
	Calculate(quantity float64) float64
}

type Broker string

const (
	BrokerPerShareWithMin Broker = "per_share_with_min"
	BrokerZero            Broker = "zero_commission"
)

var AllBrokers = []any{
	BrokerPerShareWithMin,
	BrokerZero,
}

func GetCommissionFeeHandler(broker Broker) CommissionFee {
	switch broker {
	case BrokerPerShareWithMin:
		return NewPerShareWithMinCommissionFee(DefaultCommissionPerShare, DefaultCommissionMinimum)
	case BrokerZero:
		return NewZeroCommissionFee()
	default:
		return NewZeroCommissionFee()
	}
}
