package mocks

//go:generate mockgen -destination=./mock_datasource.go -package=mocks github.com/strategraph-lab/strategraph/internal/engine/engine_v1/datasource TickSource
