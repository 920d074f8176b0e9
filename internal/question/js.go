package question

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja"
	"pkt.systems/pslog"
	"pkt.systems/screenplay/internal/actor"
	"pkt.systems/screenplay/internal/sender"
)

// ErrScript is returned when an expectation script fails to evaluate.
var ErrScript = errors.New("expectation script")

// Expect evaluates a JavaScript expression against the last response and
// answers with its truthiness. The script sees:
//
//	res.status      status code
//	res.statusText  reason phrase
//	res.url         target URI
//	res.headers     lower-cased header name -> first value
//	res.body        parsed JSON when the body is JSON, text otherwise
//	res.text()      raw body text
//	res.header(n)   every value of header n
//
// assert(cond, msg) throws when cond is falsy; console.log writes to the
// actor's logger at debug level.
func Expect(script string) actor.Question[bool] {
	return actor.QuestionFunc[bool](func(a *actor.Actor) (bool, error) {
		resp, err := a.LastResponse()
		if err != nil {
			return false, err
		}
		return evalExpectation(script, resp, a.Logger())
	})
}

func evalExpectation(script string, resp *sender.Response, logger pslog.Base) (bool, error) {
	vm := goja.New()
	registerConsole(vm, logger)
	registerAssert(vm)
	vm.Set("res", newResponseObject(vm, resp))

	v, err := vm.RunString(script)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrScript, err)
	}
	if v == nil || goja.IsUndefined(v) {
		// statement scripts that only call assert() pass when nothing threw
		return true, nil
	}
	return v.ToBoolean(), nil
}

func registerConsole(vm *goja.Runtime, logger pslog.Base) {
	console := vm.NewObject()
	console.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		if logger != nil {
			logger.Debug("js", "msg", strings.Join(parts, " "))
		}
		return goja.Undefined()
	})
	vm.Set("console", console)
}

func registerAssert(vm *goja.Runtime) {
	vm.Set("assert", func(call goja.FunctionCall) goja.Value {
		if call.Argument(0).ToBoolean() {
			return goja.Undefined()
		}
		msg := "assertion failed"
		if len(call.Arguments) > 1 {
			msg = call.Arguments[1].String()
		}
		panic(vm.NewGoError(errors.New(msg)))
	})
}

func newResponseObject(vm *goja.Runtime, resp *sender.Response) *goja.Object {
	obj := vm.NewObject()
	obj.Set("status", resp.StatusCode())
	obj.Set("statusText", resp.Status())
	obj.Set("url", resp.URI())
	obj.Set("durationMs", resp.Elapsed().Milliseconds())

	header := resp.Header()
	headers := vm.NewObject()
	for k, vals := range header {
		if len(vals) > 0 {
			headers.Set(strings.ToLower(k), vals[0])
		}
	}
	obj.Set("headers", headers)
	obj.Set("header", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(header.Values(call.Argument(0).String()))
	})

	text := resp.Text()
	obj.Set("text", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(text)
	})
	obj.Set("body", text)
	if parsed, err := parseJSON(vm, text); err == nil {
		obj.Set("body", parsed)
	}
	return obj
}

// parseJSON uses the runtime's JSON.parse so the result is a native JS value.
func parseJSON(vm *goja.Runtime, text string) (goja.Value, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty body")
	}
	jsonObj := vm.Get("JSON").ToObject(vm)
	parseFn, ok := goja.AssertFunction(jsonObj.Get("parse"))
	if !ok {
		return nil, fmt.Errorf("JSON.parse missing")
	}
	return parseFn(jsonObj, vm.ToValue(text))
}
