// Package tracer records pipeline executions.
//
// A Tracer owns at most one open Execution. Each pipeline stage is captured
// by a StepRecorder obtained from StartStep and sealed by EndStep. Every
// state change is handed to a Store, usually the trace registry.
//
//	tr := tracer.New(reg, tracer.WithLogger(logger))
//	tr.StartExecution("find a bottle", nil)
//	step, err := tr.StartStep("search", "search", map[string]any{"q": "bottle"})
//	if err != nil {
//	    return err
//	}
//	id := step.AddArtifact("Raw Results", map[string]any{"count": 2})
//	_ = step.EvaluateArtifact(id, []domain.CriterionResult{{Criterion: "Database Hit", Passed: true}})
//	_ = tr.EndStep(step)
//	tr.EndExecution()
//
// A Tracer is not safe for concurrent use; each run owns its own.
package tracer
