package connection

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type dialCall struct {
	opts *options.ClientOptions
	rp   *readpref.ReadPref
}

type dialRecorder struct {
	mu    sync.Mutex
	calls []dialCall
	fail  error
}

func (d *dialRecorder) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func (d *dialRecorder) call(i int) dialCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[i]
}

func (d *dialRecorder) setFail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail = err
}

// stubDialer replaces newClient with a dialer that builds a driver client
// without contacting a server.
func stubDialer(t *testing.T) *dialRecorder {
	t.Helper()
	rec := &dialRecorder{}
	original := newClient
	newClient = func(ctx context.Context, opts *options.ClientOptions, rp *readpref.ReadPref) (*mongo.Client, error) {
		rec.mu.Lock()
		rec.calls = append(rec.calls, dialCall{opts: opts, rp: rp})
		fail := rec.fail
		rec.mu.Unlock()
		if fail != nil {
			return nil, fail
		}
		return mongo.Connect(ctx, opts)
	}
	t.Cleanup(func() { newClient = original })
	return rec
}

// stubPing replaces the database ping used to verify credentials.
func stubPing(t *testing.T, err error) *int {
	t.Helper()
	calls := 0
	original := pingDatabase
	pingDatabase = func(ctx context.Context, db *mongo.Database) error {
		calls++
		return err
	}
	t.Cleanup(func() { pingDatabase = original })
	return &calls
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(nil)
	t.Cleanup(func() {
		_ = r.DisconnectAll(context.Background())
	})
	return r
}

var errDial = errors.New("dial refused")
