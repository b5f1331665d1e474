// Package gatekeeper provides a workflow approval and SLA orchestration
// engine.
//
// The engine tracks long-lived human-approval gates inside automated
// workflows, escalates or expires them on deadline, measures execution
// duration against service-level targets, records breaches, and announces
// every state change on an internal event bus. It comes with pluggable
// service layers:
//
//   - approval: the approval request lifecycle and registry
//   - sweeper: time-based forced transitions and retention cleanup
//   - sla: rolling-window SLO statistics per definition
//   - breach: breach records, deduplication and alert delivery
//   - event: publish/subscribe bus with pluggable delivery backends
//
// Gatekeeper is designed to be embedded in host applications. End-users
// typically interact with the engine via the high-level Service façade
// exposed by the root package:
//
//	srv, _ := gatekeeper.New()
//	srv.Runtime().Start(ctx)
//	a, _ := srv.Approvals().Create(ctx, &approval.Request{
//	    WorkflowRunID: "run-1",
//	    ActionRunID:   "act-1",
//	    ApproverRole:  "sales_manager",
//	    Timeout:       time.Hour,
//	})
//	_, _ = srv.Approvals().Resolve(ctx, a.ID, approval.DecisionApproved, "u-1", "sales_manager", nil)
//
// For more details see the individual sub-packages.
package gatekeeper
