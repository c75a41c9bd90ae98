package constant

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

func (s JobStatus) String() string {
	return string(s)
}

// Quality is the target audio bitrate in kbps.
type Quality int

const (
	Quality128 Quality = 128
	Quality192 Quality = 192
	Quality320 Quality = 320
)

func (q Quality) Valid() bool {
	return q == Quality128 || q == Quality192 || q == Quality320
}

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}
