package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"github.com/orthoressyco/optiml/boxqp"
	"github.com/orthoressyco/optiml/common"
	"github.com/orthoressyco/optiml/function"
	"github.com/orthoressyco/optiml/stochastic"
	"github.com/orthoressyco/optiml/unconstrained"
	"github.com/orthoressyco/optiml/write"
)

type traceOptions struct {
	display bool
	logPath string
	maxIter int
}

func (o *traceOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.display, "trace", false, "display the iteration trace")
	cmd.Flags().StringVar(&o.logPath, "log", "", "write every iteration as CSV to this file")
	cmd.Flags().IntVar(&o.maxIter, "max-iter", -1, "iteration budget, -1 for none")
}

// settings returns common settings with the requested writers and a
// function closing the log file.
func (o *traceOptions) settings(out io.Writer) (*common.Settings, func() error, error) {
	s := common.DefaultSettings()
	s.MaximumIterations = o.maxIter
	closer := func() error { return nil }
	if o.display {
		s.Writers = append(s.Writers, write.Writer{Writer: out, Type: write.Displayer})
	}
	if o.logPath != "" {
		f, err := os.Create(o.logPath)
		if err != nil {
			return nil, nil, errors.Wrap(err, "optbench: creating log")
		}
		s.Writers = append(s.Writers, write.Writer{Writer: f, Type: write.Logger})
		closer = f.Close
	}
	return s, closer, nil
}

type benchOptions struct {
	traceOptions
	function string
	dim      int
	method   string
	momentum string
	step     float64
	epochs   int
	eps      float64
}

func newRootCmd() *cobra.Command {
	o := &benchOptions{}
	cmd := &cobra.Command{
		Use:          "optbench",
		Short:        "Minimize a reference function and compare with its optimum",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd.OutOrStdout(), o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.function, "function", "quad1", "objective: quad1, quad2, quad5 or rosenbrock")
	f.IntVar(&o.dim, "dim", 2, "dimension of rosenbrock")
	f.StringVar(&o.method, "method", "bfgs", "gd, adagrad, rmsprop, adamax, adam, steepest, heavyball, bfgs or lbfgs")
	f.StringVar(&o.momentum, "momentum", "none", "momentum of the stochastic methods: none, standard or nesterov")
	f.Float64Var(&o.step, "step", 0.01, "step size of the stochastic methods")
	f.IntVar(&o.epochs, "epochs", 1000, "epoch budget of the stochastic methods")
	f.Float64Var(&o.eps, "eps", 1e-6, "gradient norm tolerance")
	o.addFlags(cmd)
	cmd.AddCommand(newBoxQPCmd())
	return cmd
}

// objective returns the named reference function and its starting point.
func objective(name string, dim int) (function.Function, []float64, error) {
	switch strings.ToLower(name) {
	case "quad1":
		return function.Quad1(), []float64{0, 0}, nil
	case "quad2":
		return function.Quad2(), []float64{0, 0}, nil
	case "quad5":
		return function.Quad5(), []float64{0, 0}, nil
	case "rosenbrock":
		if dim < 2 {
			return nil, nil, common.NewConfigError("dim", dim, "rosenbrock needs at least 2")
		}
		x0 := make([]float64, dim)
		for i := range x0 {
			x0[i] = 1
			if i%2 == 0 {
				x0[i] = -1.2
			}
		}
		return function.Rosenbrock{N: dim}, x0, nil
	}
	return nil, nil, common.NewConfigError("function", name, "unknown")
}

func stochasticRule(name string) (stochastic.Rule, bool) {
	switch name {
	case "gd":
		return stochastic.GradientDescent{}, true
	case "adagrad":
		return stochastic.AdaGrad{Offset: 1e-8}, true
	case "rmsprop":
		r, _ := stochastic.NewRMSProp(0.9)
		return r, true
	case "adamax":
		return stochastic.DefaultAdaMax(), true
	case "adam":
		return stochastic.DefaultAdam(), true
	}
	return nil, false
}

func lineSearchMethod(name string) (unconstrained.Method, bool) {
	switch name {
	case "steepest":
		return unconstrained.SteepestDescent{}, true
	case "heavyball":
		return &unconstrained.HeavyBall{}, true
	case "bfgs":
		return unconstrained.BFGS{}, true
	case "lbfgs":
		return &unconstrained.LBFGS{}, true
	}
	return nil, false
}

func runBench(out io.Writer, o *benchOptions) (err error) {
	f, x0, err := objective(o.function, o.dim)
	if err != nil {
		return err
	}
	cs, closeLog, err := o.settings(out)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeLog(); err == nil {
			err = cerr
		}
	}()

	var (
		res *common.Result
		x   []float64
		fx  float64
	)
	if rule, ok := stochasticRule(o.method); ok {
		mt, err := stochastic.ParseMomentumType(o.momentum)
		if err != nil {
			return err
		}
		s := stochastic.DefaultSettings()
		s.Settings = cs
		s.StepSize = o.step
		s.Epochs = o.epochs
		s.Eps = o.eps
		s.MomentumType = mt
		opt, err := stochastic.New(rule, s)
		if err != nil {
			return err
		}
		r, err := opt.Minimize(f, x0)
		if err != nil {
			return err
		}
		res, x, fx = r.Result, r.X, r.F
	} else if m, ok := lineSearchMethod(o.method); ok {
		s := unconstrained.DefaultSettings()
		s.Settings = cs
		s.GradAbsTol = o.eps
		r, err := unconstrained.Minimize(f, x0, m, s)
		if err != nil {
			return err
		}
		res, x, fx = r.Result, r.X, r.F
	} else {
		return common.NewConfigError("method", o.method, "unknown")
	}

	fmt.Fprintf(out, "function=%s method=%s status=%v iterations=%d evaluations=%d runtime=%v\n",
		o.function, o.method, res.Status, res.Iterations, res.FunctionEvaluations, res.Runtime)
	fmt.Fprintf(out, "f=%.10g\n", fx)
	if opt, ok := f.(function.Optimum); ok && opt.XStar() != nil {
		fmt.Fprintf(out, "|f-f*|=%.3e |x-x*|=%.3e\n",
			math.Abs(fx-opt.FStar()), floats.Distance(x, opt.XStar(), 2))
	}
	return nil
}

type boxOptions struct {
	traceOptions
	n      int
	seed   int64
	solver string
	eps    float64
}

func newBoxQPCmd() *cobra.Command {
	o := &boxOptions{}
	cmd := &cobra.Command{
		Use:   "boxqp",
		Short: "Solve a random box-constrained quadratic program",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoxQP(cmd.OutOrStdout(), o)
		},
	}
	f := cmd.Flags()
	f.IntVar(&o.n, "n", 20, "number of variables")
	f.Int64Var(&o.seed, "seed", 1, "seed of the problem generator")
	f.StringVar(&o.solver, "solver", "activeset", "activeset, interior, projected or dual")
	f.Float64Var(&o.eps, "eps", 1e-8, "optimality tolerance")
	o.addFlags(cmd)
	return cmd
}

func runBoxQP(out io.Writer, o *boxOptions) (err error) {
	p, err := function.NewRandomBoxQuadratic(o.n, o.seed, function.DefaultRandomBoxOptions())
	if err != nil {
		return err
	}
	cs, closeLog, err := o.settings(out)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeLog(); err == nil {
			err = cerr
		}
	}()
	s := &boxqp.Settings{Settings: cs, Eps: o.eps}
	if s.MaximumIterations < 0 {
		s.MaximumIterations = boxqp.DefaultSettings().MaximumIterations
	}

	var solver boxqp.Solver
	switch o.solver {
	case "activeset":
		solver = &boxqp.ActiveSet{Settings: s}
	case "interior":
		solver = &boxqp.InteriorPoint{Settings: s}
	case "projected":
		solver = &boxqp.ProjectedGradient{Settings: s}
	case "dual":
		ss := stochastic.DefaultSettings()
		ss.Settings = cs
		ss.StepSize = 0.1
		ss.Epochs = 10000
		ss.Eps = o.eps
		solver, err = boxqp.NewDualSolver(stochastic.GradientDescent{}, ss)
		if err != nil {
			return err
		}
	default:
		return common.NewConfigError("solver", o.solver, "unknown")
	}

	res, err := solver.Minimize(p)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "n=%d solver=%s status=%v iterations=%d runtime=%v\n",
		o.n, o.solver, res.Status, res.Iterations, res.Runtime)
	fmt.Fprintf(out, "f=%.10g kkt=%.3e\n", res.F, boxqp.KKTResidual(p, res.X))
	return nil
}
