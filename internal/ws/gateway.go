package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"study-chat/internal/apperr"
	"study-chat/internal/auth"
	"study-chat/internal/chat"
	"study-chat/internal/models"
	"study-chat/internal/observability"
	"study-chat/internal/telemetry"
)

// MembershipChecker confirms a user belongs to a group.
type MembershipChecker interface {
	Require(ctx context.Context, groupID, userID string) (models.GroupMembership, error)
}

// MessageSender persists and hydrates an outgoing chat message.
type MessageSender interface {
	Send(ctx context.Context, sender models.Identity, req chat.SendRequest) (models.MessageView, error)
}

// ReactionToggler flips a reaction and returns the message's full aggregate.
type ReactionToggler interface {
	Toggle(ctx context.Context, userID, messageID, emoji string) (chat.ReactionUpdate, error)
}

// Deps are the collaborators a Gateway dispatches to.
type Deps struct {
	Auth        auth.Authenticator
	Members     MembershipChecker
	Messages    MessageSender
	Reactions   ReactionToggler
	Rooms       RoomManager
	Broadcaster Broadcaster
	Audit       *telemetry.AuditEmitter
}

type Options struct {
	SendBuffer          int
	TypingTTL           time.Duration
	TypingSweepInterval time.Duration
}

// Gateway owns the connection registry, room subscriptions and typing state of
// one process and dispatches socket events to the chat pipelines.
type Gateway struct {
	deps      Deps
	opts      Options
	registry  *Registry
	rooms     RoomManager
	typing    *TypingTracker
	upgrader  websocket.Upgrader
	tracer    trace.Tracer
	scheduler *gocron.Scheduler
	log       *zap.Logger
}

func NewGateway(deps Deps, opts Options, log *zap.Logger) *Gateway {
	if deps.Rooms == nil {
		deps.Rooms = NewRooms()
	}
	if deps.Broadcaster == nil {
		deps.Broadcaster = LocalBroadcaster{Rooms: deps.Rooms}
	}
	if opts.TypingSweepInterval <= 0 {
		opts.TypingSweepInterval = 5 * time.Second
	}
	return &Gateway{
		deps:     deps,
		opts:     opts,
		registry: NewRegistry(),
		rooms:    deps.Rooms,
		typing:   NewTypingTracker(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		tracer: otel.Tracer("study-chat/ws"),
		log:    log.Named("ws"),
	}
}

// Start schedules the typing TTL sweep. A zero TTL leaves entries until stop or disconnect.
func (g *Gateway) Start() error {
	if g.opts.TypingTTL <= 0 {
		return nil
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	if _, err := s.Every(g.opts.TypingSweepInterval).Do(g.SweepTyping); err != nil {
		return err
	}
	s.StartAsync()
	g.scheduler = s
	g.log.Info("typing sweep scheduled",
		zap.Duration("ttl", g.opts.TypingTTL),
		zap.Duration("interval", g.opts.TypingSweepInterval),
	)
	return nil
}

// Stop halts the sweep and closes every live connection. Safe to call more than once.
func (g *Gateway) Stop() {
	if g.scheduler != nil {
		g.scheduler.Stop()
	}
	for _, c := range g.registry.All() {
		c.Close()
	}
}

// ConnectionCount reports live connections on this instance.
func (g *Gateway) ConnectionCount() int {
	return g.registry.Count()
}

// Handle authenticates the handshake and upgrades it. Unauthenticated requests are
// refused with 401 before any socket exists.
func (g *Gateway) Handle(c *gin.Context) {
	ctx, span := g.tracer.Start(c.Request.Context(), "ws.handshake")
	defer span.End()

	token := handshakeToken(c.Request)
	identity, err := g.deps.Auth.Authenticate(ctx, token)
	if err != nil {
		span.SetStatus(codes.Error, "handshake rejected")
		observability.IncWSEvent("handshake", "rejected")
		status := apperr.HTTPStatus(err)
		if apperr.CodeOf(err) == apperr.CodeInternal {
			g.log.Error("handshake auth failed", zap.Error(err))
		}
		c.JSON(status, gin.H{"error": apperr.Public(err), "code": apperr.CodeOf(err)})
		return
	}
	span.SetAttributes(attribute.String("user.id", identity.UserID))

	socket, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		observability.IncWSEvent("handshake", "error")
		g.log.Warn("websocket upgrade failed", zap.String("user_id", identity.UserID), zap.Error(err))
		return
	}

	info := ConnInfo{
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestID(c),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	conn := newConn(socket, identity, info, g.opts.SendBuffer, g.log)

	go g.serve(context.WithoutCancel(ctx), conn)
}

func (g *Gateway) serve(parent context.Context, c *Conn) {
	ctx, cancel := context.WithCancel(parent)
	c.cancel = cancel
	g.connect(ctx, c)

	go c.writePump()
	reason := c.readPump(func(raw []byte) {
		g.HandleFrame(ctx, c, raw)
	})

	g.disconnect(c, reason)
}

func (g *Gateway) connect(ctx context.Context, c *Conn) {
	if prev := g.registry.Register(c); prev != nil {
		g.log.Debug("direct delivery moved to newer connection",
			zap.String("user_id", c.User.UserID),
			zap.String("previous_conn_id", prev.ID),
			zap.String("conn_id", c.ID),
		)
	}
	observability.IncWSActive()
	observability.IncWSEvent("connect", "ok")
	g.log.Info("websocket_event",
		zap.String("event", "connect"),
		zap.String("user_id", c.User.UserID),
		zap.String("conn_id", c.ID),
		zap.String("ip", c.Info.IP),
	)
	g.deps.Audit.Emit(ctx, telemetry.AuditEvent{
		Action:    telemetry.ActionConnect,
		Text:      "websocket connected",
		RequestID: c.Info.RequestID,
		UserID:    c.User.UserID,
		ConnID:    c.ID,
	})
}

// disconnect tears down every piece of per-connection state. Each affected
// room receives the updated typing set.
func (g *Gateway) disconnect(c *Conn, reason string) {
	c.Close()
	g.registry.Unregister(c)
	groups := g.rooms.LeaveAll(c)

	ctx := context.Background()
	for _, groupID := range g.typing.RemoveUser(c.User.UserID) {
		g.broadcast(ctx, groupID, UserTyping{GroupID: groupID, Users: g.typing.Snapshot(groupID)}, c.ID)
	}

	observability.DecWSActive()
	observability.IncWSEvent("disconnect", "ok")
	g.log.Info("websocket_event",
		zap.String("event", "disconnect"),
		zap.String("user_id", c.User.UserID),
		zap.String("conn_id", c.ID),
		zap.Strings("groups", groups),
		zap.Duration("duration", time.Since(c.Info.ConnectedAt)),
		zap.String("reason", reason),
	)
	g.deps.Audit.Emit(ctx, telemetry.AuditEvent{
		Action:    telemetry.ActionDisconnect,
		Text:      reason,
		RequestID: c.Info.RequestID,
		UserID:    c.User.UserID,
		ConnID:    c.ID,
	})
}

// HandleFrame decodes and dispatches one client frame. Errors go to c only.
func (g *Gateway) HandleFrame(ctx context.Context, c *Conn, raw []byte) {
	ev, err := DecodeInbound(raw)
	if err != nil {
		g.reportError(ctx, c, "", err)
		return
	}
	g.Dispatch(ctx, c, ev)
}

// Dispatch runs one inbound event for c.
func (g *Gateway) Dispatch(ctx context.Context, c *Conn, ev Inbound) {
	name := ev.inboundName()
	ctx, span := g.tracer.Start(ctx, "ws."+name, trace.WithAttributes(
		attribute.String("user.id", c.User.UserID),
		attribute.String("ws.conn_id", c.ID),
	))
	defer span.End()

	var err error
	switch e := ev.(type) {
	case JoinGroup:
		err = g.joinGroup(ctx, c, e)
	case LeaveGroup:
		err = g.leaveGroup(ctx, c, e)
	case SendMessage:
		err = g.sendMessage(ctx, c, e)
	case TypingStart:
		err = g.typingStart(ctx, c, e)
	case TypingStop:
		err = g.typingStop(ctx, c, e)
	case AddReaction:
		err = g.addReaction(ctx, c, e)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperr.CodeOf(err)))
		g.reportError(ctx, c, name, err)
		return
	}
	observability.IncWSEvent(name, "ok")
}

func (g *Gateway) reportError(ctx context.Context, c *Conn, event string, err error) {
	code := apperr.CodeOf(err)
	label := event
	if label == "" {
		label = "decode"
	}
	if code == apperr.CodeInternal {
		observability.IncWSEvent(label, "error")
		g.log.Error("websocket_error",
			zap.String("event", event),
			zap.String("user_id", c.User.UserID),
			zap.String("conn_id", c.ID),
			zap.Error(err),
		)
	} else {
		observability.IncWSEvent(label, "rejected")
		g.log.Debug("websocket_warning",
			zap.String("event", event),
			zap.String("user_id", c.User.UserID),
			zap.String("conn_id", c.ID),
			zap.String("code", string(code)),
			zap.Error(err),
		)
	}
	g.sendTo(c, ErrorEvent{Message: apperr.Public(err), Code: code, Event: event})
}

// NotifyGroup broadcasts an announcement to every subscriber of the group's room.
func (g *Gateway) NotifyGroup(ctx context.Context, n GroupNotification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	payload, err := Encode(n)
	if err != nil {
		return err
	}
	return g.deps.Broadcaster.Broadcast(ctx, n.GroupID, payload, "")
}

// NotifyUser delivers ev to the user's current connection on this instance.
func (g *Gateway) NotifyUser(userID string, ev Outbound) bool {
	c, ok := g.registry.Lookup(userID)
	if !ok {
		return false
	}
	return g.sendTo(c, ev)
}

// SweepTyping expires stale typing entries and refreshes each affected room.
func (g *Gateway) SweepTyping() {
	ctx := context.Background()
	for _, groupID := range g.typing.Sweep(g.opts.TypingTTL) {
		g.broadcast(ctx, groupID, UserTyping{GroupID: groupID, Users: g.typing.Snapshot(groupID)}, "")
	}
}

func (g *Gateway) sendTo(c *Conn, ev Outbound) bool {
	payload, err := Encode(ev)
	if err != nil {
		g.log.Error("encode event", zap.String("event", ev.outboundName()), zap.Error(err))
		return false
	}
	return c.Send(payload)
}

func (g *Gateway) broadcast(ctx context.Context, groupID string, ev Outbound, exceptConnID string) {
	payload, err := Encode(ev)
	if err != nil {
		g.log.Error("encode event", zap.String("event", ev.outboundName()), zap.Error(err))
		return
	}
	if err := g.deps.Broadcaster.Broadcast(ctx, groupID, payload, exceptConnID); err != nil {
		observability.IncBackplaneError("publish")
		g.log.Warn("broadcast failed",
			zap.String("event", ev.outboundName()),
			zap.String("group_id", groupID),
			zap.Error(err),
		)
	}
}

// handshakeToken reads the bearer credential from the Authorization header or
// the auth.token / token query parameters.
func handshakeToken(r *http.Request) string {
	if token := auth.BearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	q := r.URL.Query()
	if token := q.Get("auth.token"); token != "" {
		return token
	}
	return q.Get("token")
}
