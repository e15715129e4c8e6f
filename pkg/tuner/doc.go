// Package tuner implements the ask/tell loop of configuration tuning.
//
// A tuner proposes configurations of a configuration space, is told how they
// performed, and keeps the best evaluations seen so far.
//
// Key Components:
//
//   - ObjectiveSpace: result parameters plus the objectives computed from them
//   - Evaluation: the measured results of one configuration
//   - RandomTuner: samples configurations and keeps the Pareto front
//
// Ranking Strategy:
//
// Evaluations are compared by Pareto dominance over the objectives:
//  1. Failed evaluations are never comparable
//  2. An evaluation is better when it is no worse on every objective and
//     strictly better on at least one
//  3. Evaluations better on some objectives and worse on others are not
//     comparable
//
// Example usage:
//
//	t, err := tuner.NewRandomTuner("search", space, objectives)
//	configs, err := t.Ask(8)
//	for _, c := range configs {
//	    ev, _ := tuner.NewEvaluation(objectives, c, tuner.ResultSuccess, measure(c))
//	    evals = append(evals, ev)
//	}
//	err = t.Tell(evals)
//	best := t.Optimums()
package tuner
