package comments

import (
	"context"
	"sync"

	"github.com/dparedesr/docshare/internal/model"
	"github.com/dparedesr/docshare/internal/session"
)

// Thread is the per-session view of one file's comment thread. It keeps an
// append-only in-memory copy of the sequence: replaced wholesale on Load,
// appended to on a successful Post, never re-sorted.
//
// Posting requires a display name. The name is established once through the
// injected session store and survives restarts; there is no way back to the
// unnamed state.
type Thread struct {
	svc     *Service
	session session.Store
	fileID  string

	mu       sync.Mutex
	comments []model.Comment
}

// NewThread constructs a Thread for one file.
func NewThread(svc *Service, sess session.Store, fileID string) *Thread {
	return &Thread{svc: svc, session: sess, fileID: fileID}
}

// Load refreshes the local copy from the server, adopting its order.
func (t *Thread) Load(ctx context.Context) ([]model.Comment, error) {
	list, err := t.svc.Load(ctx, t.fileID)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.comments = list
	t.mu.Unlock()
	return list, nil
}

// SetName establishes the session display name.
func (t *Thread) SetName(name string) error {
	return t.session.SetName(name)
}

// Name reports the cached display name, if one has been set.
func (t *Thread) Name() (string, bool) {
	return t.session.Name()
}

// Post appends a comment under the session name. It fails with ErrNameNotSet
// until SetName has succeeded once.
func (t *Thread) Post(ctx context.Context, content string, pos *model.CommentPosition) (*model.Comment, error) {
	name, ok := t.session.Name()
	if !ok {
		return nil, ErrNameNotSet
	}
	c, err := t.svc.Append(ctx, t.fileID, name, content, pos)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.comments = append(t.comments, *c)
	t.mu.Unlock()
	return c, nil
}

// Comments returns a copy of the local ordered sequence.
func (t *Thread) Comments() []model.Comment {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.Comment, len(t.comments))
	copy(out, t.comments)
	return out
}
