package core

import (
	"fmt"

	"github.com/iceymoss/newsfeed/pkg/db/objects"
)

// Outcome 摘要任务的执行结果分类，队列据此决定是否重试
type Outcome int

const (
	Success Outcome = iota
	SoftFailure
	RetryableFailure
	PermanentFailure
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case SoftFailure:
		return "soft_failure"
	case RetryableFailure:
		return "retryable_failure"
	case PermanentFailure:
		return "permanent_failure"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result 一次执行的结果，Status 为执行后文章的状态
type Result struct {
	Outcome Outcome
	Status  objects.ArticleStatus
	Err     error
}

// Retry 是否需要再次投递
func (r Result) Retry() bool {
	return r.Outcome == RetryableFailure
}

func Succeeded(status objects.ArticleStatus) Result {
	return Result{Outcome: Success, Status: status}
}

func Soft(status objects.ArticleStatus) Result {
	return Result{Outcome: SoftFailure, Status: status}
}

func Retryable(err error) Result {
	return Result{Outcome: RetryableFailure, Status: objects.StatusFailed, Err: err}
}

func Permanent(err error) Result {
	return Result{Outcome: PermanentFailure, Err: err}
}
