package presto

import "fmt"

// Warning is a non-fatal notice attached to a statement response. Warnings
// are logged as they arrive and kept on the QueryResults that carried them.
type Warning struct {
	WarningCode WarningCode `json:"warningCode"`
	Message     string      `json:"message"`
}

type WarningCode struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s(%d): %s", w.WarningCode.Name, w.WarningCode.Code, w.Message)
}
