package service

import (
	"github.com/redis/go-redis/v9"
	"github.com/weftlab/texpass/internal/dpp/repository"
	lotrepo "github.com/weftlab/texpass/internal/lot/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services 护照域服务集合
type Services struct {
	Dpp       *DppService
	Ingestion *IngestionService
}

// NewServices 创建服务集合
func NewServices(db *gorm.DB, repos *repository.Repositories, lotRepos *lotrepo.Repositories, rdb *redis.Client, logger *zap.Logger) *Services {
	return &Services{
		Dpp:       NewDppService(db, repos, rdb, logger),
		Ingestion: NewIngestionService(repos.Dpp, lotRepos.Lot, lotRepos.LotFactory, lotRepos.Inspection),
	}
}
