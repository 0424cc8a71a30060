package output

import (
	"encoding/json"
	"io"
	"time"
)

type JSONFormatter struct{}

type JSONOutput struct {
	Timestamp  time.Time `json:"timestamp"`
	SystemInfo any       `json:"system_info"`
	Config     any       `json:"config"`
	Results    any       `json:"results"`
	Summary    struct {
		Completed       int           `json:"completed"`
		Errors          int           `json:"errors"`
		TotalTime       time.Duration `json:"total_time"`
		TotalTimeString string        `json:"total_time_string"`
		Throughput      float64       `json:"throughput_ops_per_sec"`
	} `json:"summary"`
}

func (j *JSONFormatter) Format(w io.Writer, data Data) error {
	output := JSONOutput{
		Timestamp:  time.Now(),
		SystemInfo: data.SystemInfo,
		Config:     data.Config,
		Results:    data.Results,
	}

	s := summarize(data.Results)
	totalTime := time.Duration(s.totalTime * float64(time.Second))

	output.Summary.Completed = s.completed
	output.Summary.Errors = s.errors
	output.Summary.TotalTime = totalTime
	output.Summary.TotalTimeString = totalTime.String()
	output.Summary.Throughput = s.throughput()

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
