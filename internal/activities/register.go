package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.PreCheckActivity)
	w.RegisterActivity(a.SummarizeActivity)
	w.RegisterActivity(a.GenerateCodeActivity)
	w.RegisterActivity(a.SettleActivity)
	w.RegisterActivity(a.SettlePartialActivity)
}
