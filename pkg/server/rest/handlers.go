package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aarondl/opt/omitnull"
	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mpapenbr/fantasy-league-service/log"
	"github.com/mpapenbr/fantasy-league-service/pkg/model"
)

const maxBodySize = 1 << 20

type (
	// unset and null fields are treated alike
	createUserRequest struct {
		Name omitnull.Val[string] `json:"name"`
	}
	createTeamRequest struct {
		UserID       omitnull.Val[string]   `json:"userId"`
		Drivers      omitnull.Val[[]string] `json:"drivers"`
		Constructors omitnull.Val[[]string] `json:"constructors"`
		TotalCost    omitnull.Val[float64]  `json:"totalCost"`
	}
)

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "create user")
	defer span.End()

	var req createUserRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	name, ok := req.Name.Get()
	if !ok || strings.TrimSpace(name) == "" {
		s.writeFailure(w, r, missingField("name"))
		return
	}

	var user *model.User
	err := s.runInTx(ctx, func(ctx context.Context) (err error) {
		user, err = s.repos.User().Create(ctx, name)
		return err
	})
	if err != nil {
		s.writeFailure(w, r, fmt.Errorf("creating user: %w", err))
		return
	}
	span.SetAttributes(attribute.String("user.id", user.ID.String()))
	s.notifier.UserCreated(ctx, user)
	writeJSON(w, http.StatusCreated, user)
}

//nolint:funlen // validation of all fields
func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "create team")
	defer span.End()

	var req createTeamRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	team, err := req.toTeam()
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	violations, err := s.rules.Check(ctx, team)
	if err != nil {
		s.writeFailure(w, r, fmt.Errorf("checking roster rules: %w", err))
		return
	}
	if len(violations) > 0 {
		s.writeFailure(w, r,
			fmt.Errorf("%w: %s", ErrValidation, strings.Join(violations, "; ")))
		return
	}

	var created *model.Team
	err = s.runInTx(ctx, func(ctx context.Context) (err error) {
		created, err = s.repos.Team().Create(ctx, team)
		return err
	})
	if err != nil {
		s.writeFailure(w, r, fmt.Errorf("creating team: %w", err))
		return
	}
	span.SetAttributes(
		attribute.String("team.id", created.ID.String()),
		attribute.String("user.id", created.UserID.String()))
	s.notifier.TeamCreated(ctx, created)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "list teams")
	defer span.End()

	ranked, err := s.ranker.List(ctx)
	if err != nil {
		span.RecordError(err)
		s.writeFailure(w, r, fmt.Errorf("computing leaderboard: %w", err))
		return
	}
	span.SetAttributes(attribute.Int("teams", len(ranked)))
	writeJSON(w, http.StatusOK, ranked)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.healthCheck != nil {
		if err := s.healthCheck(r.Context()); err != nil {
			s.requestLogger(r).Warn("health check failed", log.ErrorField(err))
			writeJSON(w, http.StatusServiceUnavailable,
				map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (req *createTeamRequest) toTeam() (*model.Team, error) {
	rawUserID, ok := req.UserID.Get()
	if !ok || rawUserID == "" {
		return nil, missingField("userId")
	}
	userID, err := uuid.FromString(rawUserID)
	if err != nil {
		return nil, invalidField("userId", "must be a UUID")
	}
	drivers, ok := req.Drivers.Get()
	if !ok {
		return nil, missingField("drivers")
	}
	constructors, ok := req.Constructors.Get()
	if !ok {
		return nil, missingField("constructors")
	}
	totalCost, ok := req.TotalCost.Get()
	if !ok {
		return nil, missingField("totalCost")
	}
	return &model.Team{
		UserID:       userID,
		Drivers:      drivers,
		Constructors: constructors,
		TotalCost:    totalCost,
	}, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(target); err != nil {
		return bodyError(err, "is not valid JSON")
	}
	// exactly one JSON value per body
	if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		return bodyError(err, "must contain a single JSON value")
	}
	return nil
}

func bodyError(err error, reason string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, tooLarge.Limit)
	}
	return invalidField("body", reason)
}
