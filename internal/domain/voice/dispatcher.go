package voice

import (
	"context"
	"fmt"
	"homehub/internal/domain/command"
	"homehub/internal/domain/model"
	"homehub/internal/metrics"
	"homehub/internal/ports"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Debouncer suppresses near-duplicate commands for the same key.
type Debouncer interface {
	Allow(key string, now time.Time) bool
}

const (
	pathFast        = "fast"
	pathFollowUp    = "follow_up"
	pathInterpreter = "interpreter"
)

var (
	yesWords = map[string]bool{"yes": true, "yeah": true, "yep": true, "sure": true, "please": true, "confirm": true, "ok": true, "okay": true}
	noWords  = map[string]bool{"no": true, "nah": true, "nope": true, "cancel": true}
)

// Dispatcher executes a command utterance: local grammar first, then the
// external interpreter. It serves both voice sessions and the HTTP command
// endpoint.
type Dispatcher struct {
	hub      ports.HubPort
	parser   *command.Parser
	debounce Debouncer
	interp   ports.Interpreter
	clock    Clock
	log      zerolog.Logger

	mu    sync.Mutex
	offer string
}

// NewDispatcher builds a dispatcher. interp may be nil.
func NewDispatcher(hub ports.HubPort, parser *command.Parser, debounce Debouncer, interp ports.Interpreter, clock Clock, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		hub:      hub,
		parser:   parser,
		debounce: debounce,
		interp:   interp,
		clock:    clock,
		log:      log.With().Str("component", "dispatcher").Logger(),
	}
}

func (d *Dispatcher) Execute(ctx context.Context, utterance string) model.Outcome {
	norm := command.Normalize(utterance)
	if norm == "" {
		return model.Outcome{}
	}

	// A pending offer only applies to the very next utterance.
	offer := d.takeOffer()
	if offer != "" {
		switch {
		case answers(norm, yesWords):
			return d.run(ctx, model.ActionTurnOn, offer, pathFollowUp)
		case answers(norm, noWords):
			return model.Outcome{Matched: true, ResponseText: "Okay, leaving it off."}
		}
	}

	if m, ok := d.parser.Parse(norm); ok {
		return d.run(ctx, m.Action, m.Target, pathFast)
	}
	return d.interpret(ctx, utterance)
}

func (d *Dispatcher) interpret(ctx context.Context, utterance string) model.Outcome {
	if d.interp == nil {
		return model.Outcome{ResponseText: "Sorry, I didn't understand that."}
	}
	reply, err := d.interp.Interpret(ctx, utterance)
	if err != nil {
		d.log.Warn().Err(err).Msg("interpreter unavailable")
		return model.Outcome{Err: err, ResponseText: "Sorry, I can't reach the assistant right now."}
	}

	if reply.Action != "" && reply.DeviceType != "" {
		action, aerr := model.ParseAction(reply.Action)
		target, ok := d.hub.Catalog().Resolve(reply.DeviceType)
		if aerr == nil && ok {
			out := d.run(ctx, action, target, pathInterpreter)
			if reply.ResponseText != "" && out.Err == nil && !out.Debounced {
				out.ResponseText = reply.ResponseText
			}
			return out
		}
		d.log.Debug().Str("action", reply.Action).Str("device", reply.DeviceType).Msg("interpreter action not applicable")
	}
	return model.Outcome{ResponseText: reply.ResponseText}
}

func (d *Dispatcher) run(ctx context.Context, action model.Action, target, path string) model.Outcome {
	out := model.Outcome{Matched: true, Action: action, DeviceID: target}
	if !d.debounce.Allow(target, d.clock.Now()) {
		d.log.Debug().Str("target", target).Msg("debounced")
		out.Debounced = true
		return out
	}

	res, err := d.hub.Mutate(ctx, target, string(action), model.SourceVoice)
	if err != nil {
		out.Err = err
		out.ResponseText = "Sorry, I couldn't do that."
		return out
	}
	out.Result = res
	metrics.VoiceCommands.WithLabelValues(path).Inc()
	out.ResponseText = d.confirm(action, target, res)
	return out
}

func (d *Dispatcher) confirm(action model.Action, target string, res *model.MutationResult) string {
	catalog := d.hub.Catalog()
	if target == model.TargetAll {
		msg := fmt.Sprintf("Okay, turning %s everything", action.Word())
		if len(res.Skipped) > 0 {
			names := make([]string, 0, len(res.Skipped))
			for _, id := range res.Skipped {
				names = append(names, "the "+displayName(catalog, id))
			}
			msg += " except " + strings.Join(names, " and ")
		}
		return msg + "."
	}

	spec, _ := catalog.Spec(target)
	if action.On() && spec.Suggests != "" {
		if next, err := d.hub.Device(spec.Suggests); err == nil && !next.IsOn {
			d.mu.Lock()
			d.offer = spec.Suggests
			d.mu.Unlock()
			return fmt.Sprintf("%s is on. Shall I turn on the %s as well?", spec.Name, displayName(catalog, spec.Suggests))
		}
	}
	return fmt.Sprintf("Okay, turning %s the %s.", action.Word(), spec.Name)
}

func (d *Dispatcher) takeOffer() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	offer := d.offer
	d.offer = ""
	return offer
}

func answers(norm string, words map[string]bool) bool {
	fields := strings.Fields(norm)
	return len(fields) > 0 && len(fields) <= 3 && words[fields[0]]
}

func displayName(c *model.Catalog, id string) string {
	if spec, ok := c.Spec(id); ok {
		return spec.Name
	}
	return id
}
