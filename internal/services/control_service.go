package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/supermon-ng/supermon-ng/internal/ami"
	"github.com/supermon-ng/supermon-ng/internal/logging"
	"github.com/supermon-ng/supermon-ng/internal/models"
	"github.com/supermon-ng/supermon-ng/internal/nodeconfig"
	"github.com/supermon-ng/supermon-ng/internal/parser"
	"github.com/supermon-ng/supermon-ng/internal/queue"
	"github.com/supermon-ng/supermon-ng/internal/utils"
)

// ilink function codes of app_rpt
type linkCodes struct {
	normal, permanent int
	verb              string
}

var linkActions = map[string]linkCodes{
	models.LinkConnect:      {normal: 3, permanent: 13, verb: "Connecting"},
	models.LinkMonitor:      {normal: 2, permanent: 12, verb: "Monitoring"},
	models.LinkLocalMonitor: {normal: 8, permanent: 18, verb: "Local Monitoring"},
	models.LinkDisconnect:   {normal: 1, permanent: 11, verb: "Disconnecting"},
}

// Configuration reload batch, in order
var reloadCommands = []struct {
	command, file string
}{
	{"rpt reload", "rpt.conf"},
	{"iax2 reload", "iax.conf"},
	{"extensions reload", "extensions.conf"},
}

// ControlSettings tunes node control commands
type ControlSettings struct {
	Timeout     time.Duration
	ReloadDelay time.Duration // pause between reload commands
}

// ControlService issues app_rpt and Asterisk commands against a node
type ControlService struct {
	logger   *logging.Logger
	runner   *sessionRunner
	events   *queue.Events
	settings ControlSettings
	sleep    func(context.Context, time.Duration) error
}

// NewControlService creates a new ControlService. events may be nil.
func NewControlService(
	logger *logging.Logger,
	nodes nodeconfig.Provider,
	transport ami.Transport,
	events *queue.Events,
	settings ControlSettings,
) *ControlService {
	if settings.Timeout <= 0 {
		settings.Timeout = utils.DefaultRequestTimeout
	}
	logger = logger.Component("control")
	return &ControlService{
		logger:   logger,
		runner:   &sessionRunner{nodes: nodes, transport: transport, logger: logger},
		events:   events,
		settings: settings,
		sleep:    sleepContext,
	}
}

// LinkCommand returns the app_rpt command and operator message for a link
// action. action must already be validated.
func LinkCommand(local, remote, action string, permanent bool) (string, string, error) {
	codes, ok := linkActions[action]
	if !ok {
		return "", "", NewServiceError(CodeInvalidRequest, fmt.Sprintf("unknown link action %q", action))
	}

	code, verb := codes.normal, codes.verb
	if permanent {
		code, verb = codes.permanent, "Permanently "+codes.verb
	}

	command := fmt.Sprintf("rpt cmd %s ilink %d %s", local, code, remote)
	if action == models.LinkConnect {
		return command, fmt.Sprintf("%s %s to %s", verb, local, remote), nil
	}
	return command, fmt.Sprintf("%s %s from %s", verb, remote, local), nil
}

// SwitchLink connects, monitors or disconnects remote on local and
// publishes a link event with the outcome
func (s *ControlService) SwitchLink(ctx context.Context, local, remote, action string, permanent bool) (*models.CommandResult, error) {
	command, message, err := LinkCommand(local, remote, action, permanent)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.settings.Timeout)
	defer cancel()

	out, err := s.runner.command(ctx, local, command)
	if err != nil {
		s.publishLink(local, remote, action, permanent, false, err.Error())
		return nil, transportError(local, err)
	}

	s.logger.Info("Link command sent", "node", local, "remote", remote, "action", action, "permanent", permanent)
	s.publishLink(local, remote, action, permanent, true, message)
	return &models.CommandResult{Success: true, Message: message, RawOutput: out}, nil
}

func (s *ControlService) publishLink(local, remote, action string, permanent, success bool, message string) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), utils.EventPublishTimeout)
	defer cancel()
	_ = s.events.PublishLink(ctx, local, models.LinkEvent{
		Local:     local,
		Remote:    remote,
		Action:    action,
		Permanent: permanent,
		Success:   success,
		Message:   message,
	})
}

// SendDTMF executes a DTMF function string on node
func (s *ControlService) SendDTMF(ctx context.Context, node, digits string) (*models.CommandResult, error) {
	out, err := s.commandResult(ctx, node, fmt.Sprintf("rpt fun %s %s", node, digits))
	if err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("Sent %s to node %s", digits, node)
	if strings.TrimSpace(out) != "" {
		msg = strings.TrimSpace(out)
	}
	return &models.CommandResult{Success: true, Message: msg, RawOutput: out}, nil
}

// RptStats returns the raw `rpt stats` output of node
func (s *ControlService) RptStats(ctx context.Context, node string) (*models.CommandResult, error) {
	out, err := s.commandResult(ctx, node, "rpt stats "+node)
	if err != nil {
		return nil, err
	}
	return &models.CommandResult{Success: true, Message: "rpt stats " + node, RawOutput: out}, nil
}

// LinkStats returns the decoded `rpt lstats` table of node
func (s *ControlService) LinkStats(ctx context.Context, node string) (*models.LinkStatsResponse, error) {
	out, err := s.commandResult(ctx, node, "rpt lstats "+node)
	if err != nil {
		return nil, err
	}
	return &models.LinkStatsResponse{Node: node, Links: parser.ParseLinkStats(out)}, nil
}

// Registrations returns the IAX2 registrations of the Asterisk serving node
func (s *ControlService) Registrations(ctx context.Context, node string) (*models.RegistrationsResponse, error) {
	out, err := s.commandResult(ctx, node, "iax2 show registry")
	if err != nil {
		return nil, err
	}
	return &models.RegistrationsResponse{Node: node, Registrations: parser.ParseRegistrations(out)}, nil
}

// Voter returns the voter receivers of node
func (s *ControlService) Voter(ctx context.Context, node string) (*models.VoterResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.settings.Timeout)
	defer cancel()

	var voters []parser.VoterNode
	err := s.runner.run(ctx, node, func(sess ami.Session) error {
		resp, err := sess.Action(ctx, "VoterStatus")
		if err != nil {
			return err
		}
		if !resp.OK() {
			return NewServiceErrorWithDetails(CodeCommandFailed,
				fmt.Sprintf("VoterStatus rejected: %s", resp.Message),
				map[string]interface{}{"node": node})
		}
		voters = parser.ParseVoterStatus(resp.Raw)
		return nil
	})
	if err != nil {
		return nil, transportError(node, err)
	}
	return &models.VoterResponse{Node: node, Voters: voters}, nil
}

// Reload reloads rpt.conf, iax.conf and extensions.conf on one session,
// pausing between commands. A rejected command does not stop the batch.
func (s *ControlService) Reload(ctx context.Context, node string) (*models.CommandResult, error) {
	lines := []string{fmt.Sprintf("Reloading configurations for node %s", node)}
	var raw []string
	success := true

	err := s.runner.run(ctx, node, func(sess ami.Session) error {
		for i, rc := range reloadCommands {
			if i > 0 {
				if err := s.sleep(ctx, s.settings.ReloadDelay); err != nil {
					return err
				}
			}
			cmdCtx, cancel := context.WithTimeout(ctx, s.settings.Timeout)
			resp, err := sess.Command(cmdCtx, rc.command)
			cancel()
			if err != nil {
				return err
			}
			if !resp.OK() {
				success = false
				lines = append(lines, fmt.Sprintf("- FAILED to reload %s.", rc.file))
				continue
			}
			lines = append(lines, fmt.Sprintf("- %s reloaded successfully.", rc.file))
			if body := resp.Text(); body != "" {
				raw = append(raw, body)
			}
		}
		return nil
	})
	if err != nil {
		return nil, transportError(node, err)
	}

	s.logger.Info("Configuration reloaded", "node", node, "success", success)
	return &models.CommandResult{
		Success:   success,
		Message:   strings.Join(lines, "\n"),
		RawOutput: strings.Join(raw, "\n"),
	}, nil
}

func (s *ControlService) commandResult(ctx context.Context, node, command string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.settings.Timeout)
	defer cancel()

	out, err := s.runner.command(ctx, node, command)
	if err != nil {
		return "", transportError(node, err)
	}
	return out, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
