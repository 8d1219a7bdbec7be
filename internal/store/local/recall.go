package local

import "context"

// SessionRecall запоминает id последней сессии клиента между запусками.
type SessionRecall struct {
	storage *Storage
}

func NewSessionRecall(storage *Storage) *SessionRecall {
	return &SessionRecall{storage: storage}
}

func (r *SessionRecall) LoadSessionID(ctx context.Context) (string, error) {
	v, _, err := r.storage.GetItem(ctx, SessionKey)
	return v, err
}

func (r *SessionRecall) SaveSessionID(ctx context.Context, id string) error {
	if id == "" {
		return r.storage.RemoveItem(ctx, SessionKey)
	}
	return r.storage.SetItem(ctx, SessionKey, id)
}
