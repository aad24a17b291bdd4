package queue

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/pagesmith/internal/logfields"
	"git.home.luguber.info/inful/pagesmith/internal/task"
)

// NATSIngress consumes task records from a NATS subject and feeds them to the
// queue. It is an alternative front door for deployments that queue via NATS
// instead of HTTP; records arriving here are assumed to be secret-checked by
// whoever published them.
type NATSIngress struct {
	conn    *nats.Conn
	sub     *nats.Subscription
	subject string
	queue   *TaskQueue
}

// NewNATSIngress connects to NATS. Subscription starts with Start.
func NewNATSIngress(url, subject string, q *TaskQueue) (*NATSIngress, error) {
	if subject == "" {
		return nil, fmt.Errorf("nats subject is required")
	}
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	slog.Info("NATS ingress connected", "url", url, "subject", subject)
	return &NATSIngress{conn: conn, subject: subject, queue: q}, nil
}

// Start subscribes to the task subject.
func (n *NATSIngress) Start() error {
	sub, err := n.conn.Subscribe(n.subject, n.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", n.subject, err)
	}
	n.sub = sub
	return nil
}

// handleMessage decodes one task record and enqueues it. Malformed records
// are dropped with a log line; there is no requester to answer on this path.
func (n *NATSIngress) handleMessage(msg *nats.Msg) {
	var record task.InboundRecord
	if err := json.Unmarshal(msg.Data, &record); err != nil {
		slog.Warn("Dropping undecodable task record", "subject", n.subject, logfields.Error(err))
		return
	}
	t, err := record.ToBuildTask()
	if err != nil {
		slog.Warn("Dropping invalid task record", logfields.Task(record.Task), logfields.Error(err))
		return
	}
	job := NewJob(t)
	if err := n.queue.Enqueue(job); err != nil {
		slog.Error("Failed to enqueue task from NATS", logfields.Task(t.Task), logfields.Error(err))
		return
	}
	slog.Info("Task accepted from NATS", logfields.JobID(job.ID), logfields.Task(t.Task))
}

// Close drains the subscription and closes the connection.
func (n *NATSIngress) Close() error {
	if n.sub != nil {
		if err := n.sub.Drain(); err != nil {
			slog.Warn("NATS subscription drain failed", logfields.Error(err))
		}
	}
	if n.conn != nil {
		n.conn.Close()
	}
	return nil
}
