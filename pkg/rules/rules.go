package rules

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"slices"

	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/open-policy-agent/opa/v1/storage/inmem"

	"github.com/mpapenbr/fantasy-league-service/log"
	"github.com/mpapenbr/fantasy-league-service/pkg/model"
)

// Evaluator checks a team against the roster rules.
// An empty result means the team is valid.
type Evaluator interface {
	Check(ctx context.Context, team *model.Team) ([]string, error)
}

// Noop accepts every team
type Noop struct{}

func (Noop) Check(ctx context.Context, team *model.Team) ([]string, error) {
	return nil, nil
}

type OpaEvaluator struct {
	query rego.PreparedEvalQuery
	l     *log.Logger
}

type evalRequest struct {
	Drivers      []string `json:"drivers"`
	Constructors []string `json:"constructors"`
	TotalCost    float64  `json:"totalCost"`
}

var (
	_ Evaluator = (*OpaEvaluator)(nil)
	_ Evaluator = Noop{}
)

//go:embed policy.rego
var policy []byte

//go:embed data.json
var data []byte

func NewOpaEvaluator() (*OpaEvaluator, error) {
	l := log.Default().Named("rules").Named("opa")
	store := inmem.NewFromReader(bytes.NewReader(data))
	r := rego.New(
		rego.Query("data.fantasy.roster.violations"),
		rego.Module("fantasy.roster", string(policy)),
		rego.Store(store),
	)
	query, err := r.PrepareForEval(context.Background())
	if err != nil {
		l.Error("failed to prepare query", log.ErrorField(err))
		return nil, err
	}
	return &OpaEvaluator{query: query, l: l}, nil
}

// Check returns the violated rules in a stable order
func (e *OpaEvaluator) Check(ctx context.Context, team *model.Team) ([]string, error) {
	req := evalRequest{
		Drivers:      nonNil(team.Drivers),
		Constructors: nonNil(team.Constructors),
		TotalCost:    team.TotalCost,
	}
	rs, err := e.query.Eval(ctx, rego.EvalInput(req))
	if err != nil {
		e.l.Error("Check", log.ErrorField(err))
		return nil, err
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return nil, nil
	}
	values, ok := rs[0].Expressions[0].Value.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected result type %T", rs[0].Expressions[0].Value)
	}
	ret := make([]string, 0, len(values))
	for _, v := range values {
		ret = append(ret, fmt.Sprint(v))
	}
	slices.Sort(ret)
	e.l.Debug("Check", log.Strings("violations", ret))
	return ret, nil
}

func nonNil(arg []string) []string {
	if arg == nil {
		return []string{}
	}
	return arg
}
