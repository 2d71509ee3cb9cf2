package sessionModel

import (
	"context"
	"time"

	"github.com/akolanti/TranscriptRAG/internal/domain/commonModels"
)

type Turn struct {
	Question string                  `json:"question"`
	Response string                  `json:"response"`
	Sources  []commonModels.Citation `json:"sources"`
}

// Session is the persisted record of one conversation.
type Session struct {
	SessionId    string    `json:"session_id"`
	SessionName  string    `json:"session_name"`
	StartTime    time.Time `json:"start_time"`
	LastUpdated  time.Time `json:"last_updated"`
	MessageCount int       `json:"message_count"`
	Conversation []Turn    `json:"conversation"`
}

type Summary struct {
	Id           string    `json:"id"`
	Name         string    `json:"name"`
	StartTime    time.Time `json:"start_time"`
	LastUpdated  time.Time `json:"last_updated"`
	MessageCount int       `json:"message_count"`
	Preview      string    `json:"preview"`
}

type ExportFormat string

const (
	ExportTxt  ExportFormat = "txt"
	ExportMd   ExportFormat = "md"
	ExportJson ExportFormat = "json"
)

func (f ExportFormat) Valid() bool {
	switch f {
	case ExportTxt, ExportMd, ExportJson:
		return true
	}
	return false
}

// Repository persists whole session records keyed by SessionId.
// Get returns commonModels.ErrNotFound for unknown ids.
type Repository interface {
	Save(ctx context.Context, session Session) error
	Get(ctx context.Context, id string) (Session, error)
	List(ctx context.Context) ([]Session, error)
	Delete(ctx context.Context, id string) (bool, error)
	Close() error
}
