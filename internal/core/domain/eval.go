package domain

import "time"

// EvalCase is one labelled question in an evaluation dataset.
type EvalCase struct {
	Question     string   `yaml:"question" json:"question"`
	RelevantDocs []string `yaml:"relevant_docs" json:"relevant_docs"`
	Category     string   `yaml:"category" json:"category,omitempty"`
}

// EvalCaseResult holds retrieval metrics for one EvalCase.
type EvalCaseResult struct {
	Case          EvalCase      `json:"case"`
	RetrievedDocs []string      `json:"retrieved_docs"`
	PrecisionAtK  float64       `json:"precision_at_k"`
	RecallAtK     float64       `json:"recall_at_k"`
	MRR           float64       `json:"mrr"`
	Latency       time.Duration `json:"latency"`
	Error         string        `json:"error,omitempty"`
}

// EvalReport aggregates an evaluation run.
type EvalReport struct {
	K       int              `json:"k"`
	Results []EvalCaseResult `json:"results"`

	// Failed counts cases whose retrieval returned an error.
	Failed int `json:"failed"`

	MeanPrecisionAtK float64       `json:"mean_precision_at_k"`
	MeanRecallAtK    float64       `json:"mean_recall_at_k"`
	MeanMRR          float64       `json:"mean_mrr"`
	LatencyP50       time.Duration `json:"latency_p50"`
	LatencyP95       time.Duration `json:"latency_p95"`

	// ByCategory is the mean MRR per category.
	ByCategory map[string]float64 `json:"by_category,omitempty"`
}
