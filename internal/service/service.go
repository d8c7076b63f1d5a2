package service

import (
	"github.com/BigFootLime/erp-crp-backend-sub001/internal/config"
	"github.com/BigFootLime/erp-crp-backend-sub001/internal/repository"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
)

// Services regroupe les services du module pièces.
type Services struct {
	Auth     *AuthService
	Part     *PartService
	Document *DocumentService
	Export   *ExportService
}

// NewServices crée l'ensemble des services.
func NewServices(repos *repository.Repositories, rdb *redis.Client, cfg *config.Config) *Services {
	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		var err error
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			// démarrage sans stockage objet: les uploads échoueront proprement
			minioClient = nil
		}
	}

	return &Services{
		Auth:     NewAuthService(repos.User, cfg),
		Part:     NewPartService(repos, rdb, cfg),
		Document: NewDocumentService(repos.Document, minioClient, cfg.MinIO.Bucket),
		Export:   NewExportService(repos.Part),
	}
}
