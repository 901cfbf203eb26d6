package indices

import (
	"context"
	"docflow/authority"
	"docflow/bizerror"
	"docflow/client/es"
	"docflow/domain/document"
	"docflow/infra/metrics"
	"docflow/session"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var (
	lock    sync.Mutex
	running bool

	// SyncBatchSize documents are written per batch, batches are throttled by syncLimiter
	SyncBatchSize = 500
	syncLimiter   = rate.NewLimiter(rate.Every(200*time.Millisecond), 1)

	IndicesFullSyncFunc    = IndicesFullSync
	ScheduleNewSyncRunFunc = ScheduleNewSyncRun
)

// ScheduleNewSyncRun starts a full sync in background. It returns false when a run is in progress.
func ScheduleNewSyncRun(sec *session.Session) (bool, error) {
	if err := checkRebuildPermission(sec); err != nil {
		return false, err
	}
	return startSyncRun(), nil
}

func checkRebuildPermission(sec *session.Session) error {
	p := sec.Principal()
	if !authority.Active.IsAdmin(p) {
		return fmt.Errorf("%w: %s is not allowed to rebuild indices", bizerror.ErrForbidden, p.Name)
	}
	return nil
}

func startSyncRun() bool {
	lock.Lock()
	if running {
		lock.Unlock()
		return false
	}
	running = true
	lock.Unlock()

	waitRunning := sync.WaitGroup{}
	waitRunning.Add(1)
	go func() {
		waitRunning.Done()
		defer func() {
			lock.Lock()
			running = false
			lock.Unlock()
		}()
		if err := IndicesFullSyncFunc(); err != nil {
			logrus.Errorf("indices full sync: %v", err)
		}
	}()
	waitRunning.Wait()
	return true
}

// IndicesFullSync rebuilds the document index from the database.
func IndicesFullSync() (err error) {
	start := time.Now()
	defer func() {
		if ret := recover(); ret != nil {
			e, ok := ret.(error)
			if ok {
				err = e
			} else {
				err = fmt.Errorf("error on indices full sync: %v", ret)
			}
		}
		metrics.Active.ObserveIndexSync(time.Since(start))
	}()

	ctx := context.Background()
	if err := es.CreateIndexFunc(ctx, DocumentIndexName, DocumentMappings); err != nil {
		return err
	}
	docs, err := document.ActiveGateway.ListAll(ctx)
	if err != nil {
		return err
	}

	failed := 0
	for from := 0; from < len(docs); from += SyncBatchSize {
		if err := syncLimiter.Wait(ctx); err != nil {
			return err
		}
		to := from + SyncBatchSize
		if to > len(docs) {
			to = len(docs)
		}
		if err := IndexDocuments(ctx, docs[from:to]); err != nil {
			if batchErr, ok := err.(BatchActionError); ok {
				failed += len(batchErr)
			}
			logrus.Warnf("indices full sync: error on index documents [%d, %d): %v", from, to, err)
		}
	}
	logrus.Infof("indices full sync: %d documents, %d failed", len(docs), failed)
	return nil
}
