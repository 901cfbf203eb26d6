package event

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

/*
return nil if not support
*/
type EventHandler func(e *EventRecord) *EventHandleResult

type EventHandleResult struct {
	Success           bool
	Message           string
	HandlerIdentifier string
}

var EventHandlers []EventHandler

var InvokeHandlersFunc = invokeHandlers

// handlers run after commit, a failing or panicking handler is logged and never reaches the caller
func invokeHandlers(record *EventRecord) []EventHandleResult {
	results := []EventHandleResult{}
	for _, handler := range EventHandlers {
		logrus.Debug("pre handle event ", record.Category, " ", record.DocumentID)
		r := safeInvoke(handler, record)

		if r == nil {
			continue
		}

		results = append(results, *r)

		if r.Success {
			logrus.Info("post handle event. ", r)
		} else {
			logrus.Error("post handler error. ", r)
		}
	}
	return results
}

func safeInvoke(handler EventHandler, record *EventRecord) (r *EventHandleResult) {
	defer func() {
		if ret := recover(); ret != nil {
			r = &EventHandleResult{Success: false, Message: fmt.Sprintf("handler panic: %v", ret), HandlerIdentifier: "unknown"}
		}
	}()
	return handler(record)
}

// LogHandler writes every event to the application log.
func LogHandler(e *EventRecord) *EventHandleResult {
	fields := logrus.Fields{"category": e.Category, "documentId": e.DocumentID, "actor": e.CreatorName}
	if e.Audit != nil {
		fields["action"] = e.Audit.Action
	}
	if e.Document != nil {
		fields["status"] = e.Document.Status
	}
	logrus.WithFields(fields).Info("document changed")
	return &EventHandleResult{Success: true, Message: "logged", HandlerIdentifier: "log"}
}
