package domain

// FileDelta classifies a rule's resolved source files against the last
// recorded build of that rule.
type FileDelta struct {
	AllFiles       []string
	AddedFiles     []string
	RemovedFiles   []string
	ModifiedFiles  []string
	UnchangedFiles []string
}

// AnyChanges reports whether the rule's sources differ from the recorded
// state in any way.
func (d *FileDelta) AnyChanges() bool {
	return len(d.AddedFiles)+len(d.RemovedFiles)+len(d.ModifiedFiles) > 0
}
