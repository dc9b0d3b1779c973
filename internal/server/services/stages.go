package services

import "github.com/dmitrijs2005/mindwell/internal/common"

// Raw pipeline stages. Several stages share one client-visible status.
const (
	StageUploaded        = "uploaded"
	StageTranscribing    = "transcribing"
	StageAnalyzing       = "analyzing"
	StageCategorizing    = "categorizing"
	StageGeneratingTitle = "generating-title"
	StageSaving          = "saving"
	StageCompleted       = "completed"
	StageError           = "error"
)

type stageInfo struct {
	status   common.JobStatus
	progress int
}

// stageTable is the single place where raw stages map onto client status
// and progress. The error stage keeps whatever progress was reached.
var stageTable = map[string]stageInfo{
	StageUploaded:        {common.StatusPending, 0},
	StageTranscribing:    {common.StatusTranscribing, 30},
	StageAnalyzing:       {common.StatusAnalyzing, 60},
	StageCategorizing:    {common.StatusAnalyzing, 70},
	StageGeneratingTitle: {common.StatusAnalyzing, 85},
	StageSaving:          {common.StatusAnalyzing, 95},
	StageCompleted:       {common.StatusCompleted, 100},
	StageError:           {common.StatusError, -1},
}

// StageStatus maps a raw stage to its client status and progress.
// Progress is -1 for stages that do not change it.
func StageStatus(stage string) (common.JobStatus, int, bool) {
	info, ok := stageTable[stage]
	return info.status, info.progress, ok
}
