package ws

import (
	"context"
	"errors"
	"fmt"
	"homehub/internal/domain/model"
	"homehub/internal/domain/protocol"
	"homehub/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Observer is one websocket client of the hub. Browser clients send
// commands; actuators only report status.
type Observer struct {
	id    string
	conn  *Conn
	codec protocol.Codec
	hub   ports.HubPort
	log   zerolog.Logger
}

func NewObserver(conn *Conn, codec protocol.Codec, hub ports.HubPort, log zerolog.Logger) *Observer {
	id := uuid.NewString()
	return &Observer{
		id:    id,
		conn:  conn,
		codec: codec,
		hub:   hub,
		log:   log.With().Str("observer", id).Str("format", codec.Name()).Logger(),
	}
}

// NewActuator builds the observer for a relay board identified by deviceID.
func NewActuator(conn *Conn, deviceID string, hub ports.HubPort, log zerolog.Logger) *Observer {
	o := NewObserver(conn, protocol.ActuatorCodec{}, hub, log)
	o.id = "actuator:" + deviceID + ":" + o.id[:8]
	o.log = o.log.With().Str("actuator", deviceID).Logger()
	return o
}

func (o *Observer) ID() string {
	return o.id
}

func (o *Observer) Send(ctx context.Context, ev model.Event) error {
	frames, err := o.codec.Encode(ev)
	if err != nil {
		return err
	}
	for _, f := range frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := o.conn.WriteText(f); err != nil {
			return fmt.Errorf("%w: %v", ports.ErrObserverClosed, err)
		}
	}
	return nil
}

func (o *Observer) Close() error {
	return o.conn.Close()
}

// Serve registers the observer and reads until the client goes away.
func (o *Observer) Serve(ctx context.Context) error {
	if err := o.hub.Register(o); err != nil {
		_ = o.conn.Close()
		return err
	}
	o.log.Info().Msg("client connected")
	defer func() {
		o.hub.Unregister(o)
		_ = o.conn.Close()
		o.log.Info().Msg("client disconnected")
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return o.conn.KeepAlive(ctx) })
	g.Go(func() error {
		defer cancel()
		return o.readLoop(ctx)
	})
	go func() {
		<-ctx.Done()
		_ = o.conn.Close()
	}()
	if err := g.Wait(); err != nil && !isClosed(err) {
		return err
	}
	return nil
}

func (o *Observer) readLoop(ctx context.Context) error {
	for {
		frame, err := o.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		o.handle(ctx, frame)
	}
}

func (o *Observer) handle(ctx context.Context, frame []byte) {
	if _, ok := o.codec.(protocol.ActuatorCodec); ok {
		if status, ok := protocol.ParseStatus(frame); ok {
			o.log.Info().Str("status", status).Msg("actuator status")
		} else {
			o.log.Debug().Str("frame", string(frame)).Msg("actuator message ignored")
		}
		return
	}

	req, err := o.codec.Decode(frame)
	if err != nil {
		o.log.Debug().Err(err).Msg("malformed message")
		o.reply(ctx, err)
		return
	}

	switch req.Kind {
	case protocol.KindToggle:
		_, err = o.hub.Toggle(ctx, req.Target, model.SourceManual)
	default:
		_, err = o.hub.Mutate(ctx, req.Target, string(req.Action), model.SourceManual)
	}
	if err != nil {
		o.reply(ctx, err)
	}
}

// reply sends an error to this client only.
func (o *Observer) reply(ctx context.Context, err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, model.ErrUnknownDevice):
		msg = "Unknown device"
	case errors.Is(err, ports.ErrMalformedMessage):
		msg = "Invalid message format"
	}
	if serr := o.Send(ctx, model.ErrorEvent(msg)); serr != nil {
		o.log.Debug().Err(serr).Msg("error reply failed")
	}
}
