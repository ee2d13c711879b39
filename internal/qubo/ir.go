package qubo

// Intermediate representation shared by both model emissions. The builder
// produces one Model per instance; CQM() and QUBO() derive the two solver
// facing forms from it without touching builder logic.

// Term is a linear coefficient on one binary variable.
type Term struct {
	Var   int
	Coeff float64
}

// QuadTerm is a coefficient on a product of two binary variables, A < B.
type QuadTerm struct {
	A, B  int
	Coeff float64
}

// Expr is a quadratic expression over binary variables plus, for native
// constrained models, linear terms over auxiliary integer variables.
type Expr struct {
	Lin    []Term
	Quad   []QuadTerm
	IntLin []Term // indexes into Model.IntVars
	Const  float64
}

// Sense of a constraint relation.
type Sense string

const (
	SenseEQ Sense = "=="
	SenseLE Sense = "<="
)

// Constraint is one labeled relation: Expr Sense Rhs.
type Constraint struct {
	Label string
	Expr  Expr
	Sense Sense
	Rhs   float64
}

// IntVar is a bounded auxiliary integer variable. Only native constrained
// emissions carry these; penalty folding cannot express them.
type IntVar struct {
	Name      string
	Low, High int
}

// Model is the builder output: objective plus explicit constraints over the
// variable id space of one encode.Index. Immutable after Build.
type Model struct {
	NumVars     int
	Objective   Expr
	Constraints []Constraint
	IntVars     []IntVar
}

// Optimization is the solver-facing model, one of *CQM or *QUBO.
type Optimization interface {
	// Variables is the number of binary decision variables a raw assignment
	// must cover. Slack bits appended by penalty folding are not counted.
	Variables() int
}

// CQM keeps the objective and constraints separate for backends that handle
// constraints natively.
type CQM struct {
	NumVars     int
	Objective   Expr
	Constraints []Constraint
	IntVars     []IntVar
}

func (c *CQM) Variables() int { return c.NumVars }

// CQM emits the native constrained form. It shares the model's slices; both
// are read-only by convention.
func (m *Model) CQM() *CQM {
	return &CQM{
		NumVars:     m.NumVars,
		Objective:   m.Objective,
		Constraints: m.Constraints,
		IntVars:     m.IntVars,
	}
}

// positiveObjectiveSum is the penalty-method bound: a weight above the sum
// of all positive objective coefficients guarantees every feasible
// assignment beats every infeasible one.
func (m *Model) positiveObjectiveSum() float64 {
	s := 0.0
	for _, t := range m.Objective.Lin {
		if t.Coeff > 0 {
			s += t.Coeff
		}
	}
	for _, t := range m.Objective.Quad {
		if t.Coeff > 0 {
			s += t.Coeff
		}
	}
	return s
}
