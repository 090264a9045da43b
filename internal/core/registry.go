package core

import (
	"context"

	"github.com/markdave123-py/Memora/internal/models"
)

// DocumentRegistry tracks per-user document records independent of the
// vector index. It is a plain keyed store; ownership checks happen in the
// service layer.
type DocumentRegistry interface {
	Put(ctx context.Context, rec models.DocumentRecord) error
	Get(ctx context.Context, userID, documentID string) (*models.DocumentRecord, error)
	List(ctx context.Context, userID string) ([]models.DocumentRecord, error)
	Delete(ctx context.Context, userID, documentID string) error
	Exists(ctx context.Context, userID, documentID string) (bool, error)

	// DeleteUser removes every record the user owns.
	DeleteUser(ctx context.Context, userID string) error
}

// UserStore persists the minimal user record the auth endpoints need.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// ObjectClient stores raw uploaded files. The bucket is fixed at
// construction time.
type ObjectClient interface {
	UploadFile(ctx context.Context, key string, data []byte, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, key string) error
	GetFile(ctx context.Context, key string) ([]byte, error)
}
