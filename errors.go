package notifier

import (
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

var (
	ErrRecordNotFound   = errors.New("record not found", j.C("ERR_96a04b6772153ab7"))
	ErrTemplateNotFound = errors.New("template not found", j.C("ERR_02d1931f5e1c0a84"))
	ErrUnknownStatus    = errors.New("unknown record status", j.C("ERR_c19bd6e0a3f6b1d2"))
	ErrDispatchFailed   = errors.New("email dispatch failed", j.C("ERR_4be2d174c88d90e5"))
	ErrExecutionFailed  = errors.New("workflow execution failed", j.C("ERR_7d3e9a51b0c24f68"))
	ErrNoTransition     = errors.New("no transition matched", j.C("ERR_e85f01c92b7ad436"))
	ErrInvalidGraph     = errors.New("workflow graph is invalid", j.C("ERR_51c7a8e94d2f06b3"))
	ErrReceiptNotFound  = errors.New("delivery receipt not found", j.C("ERR_ab30c6f517e29d84"))
)
