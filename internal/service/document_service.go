package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/BigFootLime/erp-crp-backend-sub001/internal/apperr"
	"github.com/BigFootLime/erp-crp-backend-sub001/internal/model/entity"
	"github.com/BigFootLime/erp-crp-backend-sub001/internal/repository"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// DocumentService orchestre l'attachement de documents: stockage objet,
// empreinte SHA-256, métadonnées. Un lot est tout ou rien: si la
// transaction des métadonnées échoue, les objets déjà écrits sont retirés
// (suppression compensatoire, best effort).
type DocumentService struct {
	docRepo     *repository.DocumentRepository
	minioClient *minio.Client
	bucketName  string
}

// NewDocumentService crée le service documents.
func NewDocumentService(docRepo *repository.DocumentRepository, minioClient *minio.Client, bucketName string) *DocumentService {
	return &DocumentService{
		docRepo:     docRepo,
		minioClient: minioClient,
		bucketName:  bucketName,
	}
}

// safeExtension retourne l'extension du nom d'origine si elle est courte et
// alphanumérique, chaîne vide sinon.
func safeExtension(fileName string) string {
	ext := strings.TrimPrefix(filepath.Ext(fileName), ".")
	if ext == "" || len(ext) > 8 {
		return ""
	}
	for _, r := range ext {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return ""
		}
	}
	return strings.ToLower(ext)
}

// objectName dérive le chemin de stockage déterministe d'un document.
func objectName(documentID, ext string) string {
	if ext == "" {
		return "parts/" + documentID
	}
	return "parts/" + documentID + "." + ext
}

// Attach stocke chaque fichier du lot, calcule son empreinte sur les octets
// réellement écrits, puis insère les métadonnées du lot dans une seule
// transaction. Aucune ligne ne peut pointer vers un objet absent.
func (s *DocumentService) Attach(ctx context.Context, partID, actor, libelle string, files []*multipart.FileHeader) ([]entity.PartDocument, error) {
	if s.minioClient == nil {
		return nil, apperr.Internal("stockage objet non configuré", nil)
	}

	var docs []entity.PartDocument
	var stored []string

	cleanup := func() {
		for _, name := range stored {
			// best effort: l'objet orphelin sera repris par un nettoyage ultérieur
			s.minioClient.RemoveObject(context.Background(), s.bucketName, name, minio.RemoveObjectOptions{})
		}
	}

	now := time.Now()
	for _, fh := range files {
		file, err := fh.Open()
		if err != nil {
			cleanup()
			return nil, apperr.Internal("ouverture du fichier", err)
		}

		documentID := strings.ReplaceAll(uuid.New().String(), "-", "")[:32]
		ext := safeExtension(fh.Filename)
		name := objectName(documentID, ext)

		hasher := sha256.New()
		reader := io.TeeReader(file, hasher)

		contentType := fh.Header.Get("Content-Type")
		info, err := s.minioClient.PutObject(ctx, s.bucketName, name, reader, fh.Size, minio.PutObjectOptions{
			ContentType: contentType,
		})
		file.Close()
		if err != nil {
			cleanup()
			return nil, apperr.Internal("écriture du fichier", err)
		}
		if info.Size != fh.Size {
			cleanup()
			return nil, apperr.Internal(fmt.Sprintf("taille stockée inattendue pour %s", fh.Filename), nil)
		}
		stored = append(stored, name)

		docs = append(docs, entity.PartDocument{
			ID:          documentID,
			PartID:      partID,
			NomOriginal: fh.Filename,
			NomStockage: filepath.Base(name),
			Chemin:      name,
			MimeType:    contentType,
			Taille:      info.Size,
			Empreinte:   hex.EncodeToString(hasher.Sum(nil)),
			Libelle:     libelle,
			UploadedBy:  actor,
			CreatedAt:   now,
		})
	}

	if err := s.docRepo.CreateBatch(ctx, partID, docs, actor); err != nil {
		cleanup()
		return nil, err
	}
	return docs, nil
}

// Remove retire la métadonnée du document; le fichier physique est conservé.
func (s *DocumentService) Remove(ctx context.Context, partID, documentID, actor string) (bool, error) {
	return s.docRepo.Remove(ctx, partID, documentID, actor)
}

// List retourne les documents d'une pièce.
func (s *DocumentService) List(ctx context.Context, partID string) ([]entity.PartDocument, error) {
	return s.docRepo.ListByPart(ctx, partID)
}

// Download retourne le flux et la métadonnée d'un document, en journalisant
// l'accès.
func (s *DocumentService) Download(ctx context.Context, partID, documentID, actor string) (io.ReadCloser, *entity.PartDocument, error) {
	doc, err := s.docRepo.FindForDownload(ctx, partID, documentID, actor)
	if err != nil {
		return nil, nil, err
	}
	if s.minioClient == nil {
		return nil, doc, apperr.Internal("stockage objet non configuré", nil)
	}
	object, err := s.minioClient.GetObject(ctx, s.bucketName, doc.Chemin, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, apperr.Internal("lecture du fichier", err)
	}
	return object, doc, nil
}
