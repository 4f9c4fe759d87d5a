// Package result holds the outcome type returned by every service operation.
//
// A Result is either a success carrying a status code, a message and a payload,
// or a failure carrying only a status code and a message. The payload of a
// failure is unreachable: Data reports false for it and Envelope omits it.
package result

import (
	"fmt"
	"net/http"
)

// Messages shared by several services.
const (
	MsgAuthenticationFailed = "Authentication failed"
	MsgEmailAlreadyExists   = "Email already exists"
)

type Result[T any] struct {
	ok   bool
	code int
	msg  string
	data T
}

// Envelope is the JSON body written for a Result.
type Envelope struct {
	OK   bool   `json:"ok"`
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

// Ok builds a success carrying data.
func Ok[T any](code int, msg string, data T) Result[T] {
	return Result[T]{ok: true, code: code, msg: msg, data: data}
}

// Err builds a failure.
func Err[T any](code int, msg string) Result[T] {
	return Result[T]{code: code, msg: msg}
}

func NotFound[T any](entity string) Result[T] {
	return Err[T](http.StatusNotFound, fmt.Sprintf("%s not found", entity))
}

func BadRequest[T any](msg string) Result[T] {
	return Err[T](http.StatusBadRequest, msg)
}

func Unauthorized[T any]() Result[T] {
	return Err[T](http.StatusUnauthorized, MsgAuthenticationFailed)
}

// Forward re-types a failure so it can be returned from an operation with a
// different payload type. It must only be called on failures.
func Forward[U, T any](r Result[T]) Result[U] {
	if r.ok {
		panic("result: Forward called on a success")
	}
	return Err[U](r.code, r.msg)
}

func (r Result[T]) OK() bool    { return r.ok }
func (r Result[T]) Code() int   { return r.code }
func (r Result[T]) Msg() string { return r.msg }

// Data returns the payload and true for a success, the zero value and false
// for a failure.
func (r Result[T]) Data() (T, bool) {
	if !r.ok {
		var zero T
		return zero, false
	}
	return r.data, true
}

func (r Result[T]) Envelope() Envelope {
	env := Envelope{OK: r.ok, Code: r.code, Msg: r.msg}
	if r.ok {
		env.Data = r.data
	}
	return env
}
