package solverd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/simplexviz/simplex-core/internal/simplex"
	"github.com/simplexviz/simplex-core/internal/tableau"
	"gopkg.in/yaml.v3"
)

// ErrBadRequest marks requests that are not a well-formed solve request.
var ErrBadRequest = errors.New("bad request")

// Objective is the objective block of a request
type Objective struct {
	Coefficients map[string]float64 `json:"coefficients"`
}

// ConstraintJSON is one constraint of a request
type ConstraintJSON struct {
	LHS      map[string]float64 `json:"lhs"`
	RHS      float64            `json:"rhs"`
	Relation string             `json:"relation"`
}

// SolveRequest is the map-based request schema. Requests in the array-based
// legacy shape are converted to it by DecodeRequest.
type SolveRequest struct {
	Method      string           `json:"method,omitempty"`
	Type        string           `json:"type,omitempty"`
	Variables   []string         `json:"variables,omitempty"`
	Objective   Objective        `json:"objective"`
	Constraints []ConstraintJSON `json:"constraints"`
}

// SolveResponse is the response schema. OptimalValue and Variables encode
// as null unless the status is Optimal.
type SolveResponse struct {
	Status           string             `json:"status"`
	OptimalValue     *float64           `json:"optimal_value"`
	Variables        map[string]float64 `json:"variables"`
	Iterations       int                `json:"iterations"`
	Phase1Iterations int                `json:"phase1_iterations"`
	Method           string             `json:"method"`
	Tables           []tableau.Snapshot `json:"tables"`
}

type rawRequest struct {
	Method      string          `json:"method"`
	Type        string          `json:"type"`
	Variables   []string        `json:"variables"`
	Objective   json.RawMessage `json:"objective"`
	Constraints json.RawMessage `json:"constraints"`
	RHS         []float64       `json:"rhs"`
	Relations   []string        `json:"relations"`
}

// DecodeRequest parses a JSON solve request in either the map-based shape
// or the legacy array shape:
//
//	{"objective": [3, 2], "constraints": [[1, 1], [1, 0]], "rhs": [4, 2]}
//
// Legacy variables are named x1..xn.
func DecodeRequest(data []byte) (*SolveRequest, error) {
	var raw rawRequest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: invalid request body: %v", ErrBadRequest, err)
	}
	req := &SolveRequest{Method: raw.Method, Type: raw.Type, Variables: raw.Variables}

	if isArray(raw.Objective) {
		return decodeLegacy(req, &raw)
	}
	if len(raw.RHS) > 0 || len(raw.Relations) > 0 {
		return nil, fmt.Errorf("%w: rhs and relations are only valid with array-shaped constraints", ErrBadRequest)
	}
	if len(raw.Objective) > 0 && !isNull(raw.Objective) {
		if err := json.Unmarshal(raw.Objective, &req.Objective); err != nil {
			return nil, fmt.Errorf("%w: invalid objective: %v", ErrBadRequest, err)
		}
	}
	if len(raw.Constraints) > 0 && !isNull(raw.Constraints) {
		if err := json.Unmarshal(raw.Constraints, &req.Constraints); err != nil {
			return nil, fmt.Errorf("%w: invalid constraints: %v", ErrBadRequest, err)
		}
	}
	return req, nil
}

// DecodeRequestYAML parses a request written in YAML. Both shapes are
// accepted, with the same field names as JSON.
func DecodeRequestYAML(data []byte) (*SolveRequest, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: invalid yaml: %v", ErrBadRequest, err)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: yaml document is not representable as json: %v", ErrBadRequest, err)
	}
	return DecodeRequest(data)
}

func decodeLegacy(req *SolveRequest, raw *rawRequest) (*SolveRequest, error) {
	var costs []float64
	if err := json.Unmarshal(raw.Objective, &costs); err != nil {
		return nil, fmt.Errorf("%w: invalid objective array: %v", ErrBadRequest, err)
	}
	var rows [][]float64
	if len(raw.Constraints) > 0 && !isNull(raw.Constraints) {
		if err := json.Unmarshal(raw.Constraints, &rows); err != nil {
			return nil, fmt.Errorf("%w: invalid constraint matrix: %v", ErrBadRequest, err)
		}
	}

	if len(raw.RHS) != len(rows) {
		return nil, simplex.NewValidationError(simplex.DimensionMismatch,
			"%d constraint rows but %d rhs values", len(rows), len(raw.RHS))
	}
	if len(raw.Relations) != 0 && len(raw.Relations) != len(rows) {
		return nil, simplex.NewValidationError(simplex.DimensionMismatch,
			"%d constraint rows but %d relations", len(rows), len(raw.Relations))
	}

	names := make([]string, len(costs))
	req.Objective.Coefficients = make(map[string]float64, len(costs))
	for j, c := range costs {
		names[j] = fmt.Sprintf("x%d", j+1)
		req.Objective.Coefficients[names[j]] = c
	}
	if len(req.Variables) == 0 {
		req.Variables = names
	}

	for i, row := range rows {
		if len(row) != len(costs) {
			return nil, simplex.NewValidationError(simplex.DimensionMismatch,
				"constraint %d has %d coefficients, objective has %d", i+1, len(row), len(costs))
		}
		con := ConstraintJSON{LHS: make(map[string]float64, len(row)), RHS: raw.RHS[i]}
		for j, v := range row {
			con.LHS[names[j]] = v
		}
		if len(raw.Relations) > 0 {
			con.Relation = raw.Relations[i]
		}
		req.Constraints = append(req.Constraints, con)
	}
	return req, nil
}

// Problem converts the request into an engine problem and the method to run.
// An empty method selects def; an empty type means max and an empty
// relation means "<=".
func (r *SolveRequest) Problem(def simplex.Method) (*simplex.Problem, simplex.Method, error) {
	method := def
	if strings.TrimSpace(r.Method) != "" {
		m, err := simplex.ParseMethod(r.Method)
		if err != nil {
			return nil, def, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		method = m
	}

	sense := simplex.Maximize
	if strings.TrimSpace(r.Type) != "" {
		s, err := simplex.ParseSense(r.Type)
		if err != nil {
			return nil, method, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		sense = s
	}

	p := &simplex.Problem{
		Sense:     sense,
		Variables: r.Variables,
		Objective: r.Objective.Coefficients,
	}
	for i, c := range r.Constraints {
		rel := simplex.LessEqual
		if strings.TrimSpace(c.Relation) != "" {
			parsed, err := simplex.ParseRelation(c.Relation)
			if err != nil {
				return nil, method, fmt.Errorf("%w: constraint %d: %v", ErrBadRequest, i+1, err)
			}
			rel = parsed
		}
		p.Constraints = append(p.Constraints, simplex.Constraint{
			Coefficients: c.LHS,
			Relation:     rel,
			RHS:          c.RHS,
		})
	}
	return p, method, nil
}

// NewSolveResponse renders a solution in the response schema
func NewSolveResponse(sol *simplex.Solution) *SolveResponse {
	resp := &SolveResponse{
		Status:           sol.Status.String(),
		OptimalValue:     sol.Objective,
		Variables:        sol.Values,
		Iterations:       sol.Iterations,
		Phase1Iterations: sol.Phase1Iterations,
		Method:           sol.Method.String(),
		Tables:           sol.Snapshots,
	}
	if resp.Tables == nil {
		resp.Tables = []tableau.Snapshot{}
	}
	return resp
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
