package daily

import (
	"context"
	"strings"
)

// ExecutionResult is what the execution service reports for one run
type ExecutionResult struct {
	Stdout    string
	Stderr    string
	Exception string
}

// Executor runs source code against one stdin. An error means the service
// itself failed; compile and runtime failures come back in the result.
type Executor interface {
	Run(ctx context.Context, language, stdin, fileName, source string) (ExecutionResult, error)
}

// FileName returns the entry file name the execution service expects for language
func FileName(language string) string {
	switch strings.ToLower(language) {
	case "c":
		return "main.c"
	case "cpp":
		return "main.cpp"
	case "python":
		return "main.py"
	case "java":
		return "Main.java"
	default:
		return "index.js"
	}
}
