package mocks

//go:generate mockgen -destination=./mock_broker.go -package=mocks github.com/rxtech-lab/argo-bracket/internal/trading Broker
//go:generate mockgen -destination=./mock_portfolio.go -package=mocks github.com/rxtech-lab/argo-bracket/internal/trading Portfolio
//go:generate mockgen -destination=./mock_calendar.go -package=mocks github.com/rxtech-lab/argo-bracket/internal/calendar Calendar
//go:generate mockgen -destination=./mock_archive.go -package=mocks github.com/rxtech-lab/argo-bracket/internal/archive Archive
