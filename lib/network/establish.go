// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/pannet/lib/bus"
	"github.com/bureau-foundation/pannet/lib/clock"
	"github.com/bureau-foundation/pannet/lib/netrole"
)

// Stage is the position of a pending establishment in its protocol.
type Stage int

const (
	StageStart Stage = iota
	StageHandlesRequested
	StageRecordRequested
	StageRecordReceived
	StageRegistered
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageStart:
		return "start"
	case StageHandlesRequested:
		return "handles-requested"
	case StageRecordRequested:
		return "record-requested"
	case StageRecordReceived:
		return "record-received"
	case StageRegistered:
		return "registered"
	case StageFailed:
		return "failed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// ReplyFunc receives the single terminal result of an establishment:
// the new connection path, or an error. It is called on the manager
// loop and must not block.
type ReplyFunc func(ObjectPath, error)

// pendingEstablishment is the transient state of one CreateConnection
// request. It never leaves the coordinator.
type pendingEstablishment struct {
	id      uint64
	address string
	role    netrole.Role
	adapter AdapterRef
	path    ObjectPath
	stage   Stage
	handle  uint32
	reply   ReplyFunc

	ctx    context.Context
	cancel context.CancelFunc
	timer  *clock.Timer
}

// Coordinator drives the two-stage discovery handshake for every
// in-flight CreateConnection. All methods except the stage goroutines
// run on the manager loop; stage results come back through post.
type Coordinator struct {
	resolver    AdapterResolver
	adapter     Adapter
	connections *ConnectionRegistry
	clock       clock.Clock
	timeout     time.Duration
	logger      *slog.Logger

	// post schedules fn on the loop. It drops fn if the loop has
	// stopped.
	post func(fn func())

	// base is the parent of every stage context. Cancelling it aborts
	// all in-flight remote calls.
	base context.Context

	nextID  uint64
	pending map[uint64]*pendingEstablishment
}

// CoordinatorConfig holds the collaborators of a Coordinator.
type CoordinatorConfig struct {
	Resolver    AdapterResolver
	Adapter     Adapter
	Connections *ConnectionRegistry
	Clock       clock.Clock

	// Timeout bounds each remote stage. Zero disables it.
	Timeout time.Duration

	Logger *slog.Logger
	Post   func(fn func())
	Base   context.Context
}

// NewCoordinator returns a coordinator with no pending requests.
func NewCoordinator(config CoordinatorConfig) *Coordinator {
	return &Coordinator{
		resolver:    config.Resolver,
		adapter:     config.Adapter,
		connections: config.Connections,
		clock:       config.Clock,
		timeout:     config.Timeout,
		logger:      config.Logger,
		post:        config.Post,
		base:        config.Base,
		pending:     make(map[uint64]*pendingEstablishment),
	}
}

// Pending returns the number of in-flight establishments.
func (c *Coordinator) Pending() int { return len(c.pending) }

// Begin validates a request and starts discovery. Validation failures
// are replied before Begin returns; otherwise reply is called later,
// exactly once.
func (c *Coordinator) Begin(address, serviceName string, reply ReplyFunc) {
	normalized, err := NormalizeAddress(address)
	if err != nil {
		reply("", wrapError(InvalidArguments, "CreateConnection", err))
		return
	}

	role, err := netrole.Resolve(serviceName)
	if err != nil {
		reply("", wrapError(UnsupportedService, "CreateConnection", err))
		return
	}
	if !role.Serving() {
		reply("", newError(UnsupportedService, fmt.Sprintf("%s is not a serving role", role.Name)))
		return
	}

	id := c.nextID
	c.nextID++

	adapter, ok := c.resolver.CurrentAdapter()
	if !ok {
		reply("", newError(AdapterUnavailable, "no local adapter available"))
		return
	}

	ctx, cancel := context.WithCancel(c.base)
	p := &pendingEstablishment{
		id:      id,
		address: normalized,
		role:    role,
		adapter: adapter,
		path:    ConnectionPath(id),
		stage:   StageStart,
		reply:   reply,
		ctx:     ctx,
		cancel:  cancel,
	}
	c.pending[id] = p

	c.logger.Info("establishing connection",
		"id", id,
		"address", normalized,
		"role", role.Name,
		"adapter", adapter,
	)
	c.requestHandles(p)
}

func (c *Coordinator) requestHandles(p *pendingEstablishment) {
	p.stage = StageHandlesRequested
	c.armTimeout(p)

	id, ctx, adapter, address, service := p.id, p.ctx, p.adapter, p.address, p.role.UUID
	go func() {
		handles, err := c.adapter.FindServiceHandles(ctx, adapter, address, service)
		c.post(func() { c.handlesReceived(id, handles, err) })
	}()
}

func (c *Coordinator) handlesReceived(id uint64, handles []uint32, err error) {
	p := c.current(id, StageHandlesRequested)
	if p == nil {
		return
	}
	c.disarmTimeout(p)

	if err != nil {
		c.fail(p, mapDiscoveryError("discovering service handles", err))
		return
	}
	if len(handles) == 0 {
		c.fail(p, newError(NotSupported, fmt.Sprintf("%s offers no %s service", p.address, p.role.Name)))
		return
	}

	// Only the first handle is used; a bad record there is not retried
	// against the others.
	p.handle = handles[0]
	c.requestRecord(p)
}

func (c *Coordinator) requestRecord(p *pendingEstablishment) {
	p.stage = StageRecordRequested
	c.armTimeout(p)

	id, ctx, adapter, address, handle := p.id, p.ctx, p.adapter, p.address, p.handle
	go func() {
		record, err := c.adapter.FetchServiceRecord(ctx, adapter, address, handle)
		c.post(func() { c.recordReceived(id, record, err) })
	}()
}

func (c *Coordinator) recordReceived(id uint64, record []byte, err error) {
	p := c.current(id, StageRecordRequested)
	if p == nil {
		return
	}
	c.disarmTimeout(p)

	if err != nil {
		c.fail(p, mapDiscoveryError("fetching service record", err))
		return
	}
	if len(record) == 0 {
		c.fail(p, newError(NotSupported, fmt.Sprintf("empty service record for handle 0x%08x", p.handle)))
		return
	}
	p.stage = StageRecordReceived

	entry := ConnectionEntry{
		Path:          p.path,
		Address:       p.address,
		Role:          p.role,
		Adapter:       p.adapter,
		Handle:        p.handle,
		RecordSize:    len(record),
		RecordDigest:  blake3.Sum256(record),
		EstablishedAt: c.clock.Now(),
	}
	if err := c.connections.Promote(entry); err != nil {
		c.fail(p, wrapError(RegistrationFailed, "registering connection", err))
		return
	}

	p.stage = StageRegistered
	c.finish(p)
	p.reply(p.path, nil)
}

// current returns the pending establishment id if it is still waiting
// at stage. Results for finished or superseded stages are dropped.
func (c *Coordinator) current(id uint64, stage Stage) *pendingEstablishment {
	p, ok := c.pending[id]
	if !ok || p.stage != stage {
		c.logger.Debug("dropping late establishment result", "id", id, "stage", stage)
		return nil
	}
	return p
}

func (c *Coordinator) armTimeout(p *pendingEstablishment) {
	if c.timeout <= 0 {
		return
	}
	id, stage := p.id, p.stage
	p.timer = c.clock.AfterFunc(c.timeout, func() {
		c.post(func() { c.timedOut(id, stage) })
	})
}

func (c *Coordinator) disarmTimeout(p *pendingEstablishment) {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (c *Coordinator) timedOut(id uint64, stage Stage) {
	p := c.current(id, stage)
	if p == nil {
		return
	}
	p.timer = nil
	c.fail(p, newError(ConnectionAttemptFailed, fmt.Sprintf("timed out after %s waiting at %s", c.timeout, stage)))
}

// CancelAll fails every pending establishment with Canceled, in id
// order.
func (c *Coordinator) CancelAll() {
	ids := make([]uint64, 0, len(c.pending))
	for id := range c.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		c.fail(c.pending[id], newError(Canceled, "network manager shutting down"))
	}
}

func (c *Coordinator) fail(p *pendingEstablishment, err error) {
	c.logger.Warn("connection establishment failed",
		"id", p.id,
		"address", p.address,
		"role", p.role.Name,
		"stage", p.stage,
		"error", err,
	)
	p.stage = StageFailed
	c.finish(p)
	p.reply("", err)
}

// finish removes p from the pending set and releases its resources.
func (c *Coordinator) finish(p *pendingEstablishment) {
	delete(c.pending, p.id)
	c.disarmTimeout(p)
	p.cancel()
}

// mapDiscoveryError keeps ConnectionAttemptFailed distinguishable and
// folds every other remote failure into NotSupported.
func mapDiscoveryError(operation string, err error) error {
	var named bus.NamedError
	if errors.As(err, &named) && named.ErrorName() == ErrorNameConnectionAttemptFailed {
		return wrapError(ConnectionAttemptFailed, operation, err)
	}
	return wrapError(NotSupported, operation, err)
}
