package vectorutils

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/mural/pkg/vector"
	qdrantdriver "github.com/papercomputeco/mural/pkg/vector/qdrant"
	"github.com/papercomputeco/mural/pkg/vector/sqlitevec"
)

type NewVectorDriverOpts struct {
	ProviderType string
	Host         string
	Port         int
	DBPath       string
	Dimensions   uint
	Logger       *zap.Logger
}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case "qdrant":
		return qdrantdriver.NewDriver(ctx, qdrantdriver.Config{
			Host:       o.Host,
			Port:       o.Port,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "sqlitevec":
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.DBPath,
			Dimensions: o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
