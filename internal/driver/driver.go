package driver

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"kiln/internal/backend/constdata"
	"kiln/internal/backend/obj"
	"kiln/internal/diag"
	"kiln/internal/layout"
	"kiln/internal/mem"
)

// Unit is one compilation unit's materialization input: its evaluated
// memory graph, the statics it defines, and the functions whose required
// constants must be checked.
type Unit struct {
	Name      string
	Store     *mem.Store
	Eval      mem.Evaluator // nil means the Store itself
	Statics   []mem.StaticID
	Functions []*mem.Function
}

// UnitResult carries one unit's diagnostics.
type UnitResult struct {
	Name string
	Bag  *diag.Bag
}

// Options configures a driver run.
type Options struct {
	MaxDiagnostics int
	Jobs           int // <= 0 means GOMAXPROCS
}

// CompileUnits materializes every unit's statics into the shared module,
// units in parallel. Each unit owns an independent engine state; the module
// serializes its own symbol table. Evaluator-reported failures become
// diagnostics in the unit's bag and abandon only the offending item;
// internal-consistency errors abort the whole run.
func CompileUnits(ctx context.Context, units []Unit, target layout.Target, module obj.Module, opts Options) ([]UnitResult, error) {
	if opts.MaxDiagnostics <= 0 {
		opts.MaxDiagnostics = 100
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	results := make([]UnitResult, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, max(len(units), 1)))

	for i, unit := range units {
		g.Go(func(i int, unit Unit) func() error {
			return func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}

				bag := diag.NewBag(opts.MaxDiagnostics)
				results[i] = UnitResult{Name: unit.Name, Bag: bag}
				if err := compileUnit(unit, target, module, bag); err != nil {
					return fmt.Errorf("unit %s: %w", unit.Name, err)
				}
				return nil
			}
		}(i, unit))
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func compileUnit(unit Unit, target layout.Target, module obj.Module, bag *diag.Bag) error {
	eval := unit.Eval
	if eval == nil {
		eval = unit.Store
	}
	p := constdata.NewPass(unit.Store, eval, target, module, &diag.BagReporter{Bag: bag})

	for _, fn := range unit.Functions {
		// A function whose constants fail to evaluate is skipped, not
		// compiled into corrupt bytes; the bag already has the diagnostics.
		if _, err := constdata.CheckConstants(p, fn); err != nil {
			if reportable(err, bag) {
				continue
			}
			return err
		}
	}

	for _, id := range unit.Statics {
		if err := p.CodegenStatic(id); err != nil {
			if reportable(err, bag) {
				continue
			}
			return err
		}
	}
	return nil
}

// reportable converts a recoverable materialization error into a diagnostic
// and reports true. Internal-consistency errors are never reportable.
func reportable(err error, bag *diag.Bag) bool {
	var merr *constdata.Error
	if !errors.As(err, &merr) {
		return false
	}
	if merr.Kind.Internal() {
		return false
	}
	bag.Add(diag.NewError(merr.Kind.Code(), merr.Span, merr.Error()))
	return true
}
