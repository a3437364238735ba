package queue

// TypeMarkAbsentees asks the worker to run the absentee pass for one class.
const TypeMarkAbsentees = "mark-absentees"

// MarkAbsenteesJob is the body of a TypeMarkAbsentees message.
type MarkAbsenteesJob struct {
	ClassID  string `json:"classId"`
	MarkedBy string `json:"markedBy"`
}
