package protocol

import (
	"context"
	"encoding/json"
)

// Runtime domain: script evaluation and function calls (spec.md §4.6
// Evaluate, SPEC_FULL.md's CallJSFunction supplement), plus the
// BindingCalled event used by page bindings.

const (
	CommandRuntimeEnable          MethodType = "Runtime.enable"
	CommandRuntimeEvaluate        MethodType = "Runtime.evaluate"
	CommandRuntimeCallFunctionOn  MethodType = "Runtime.callFunctionOn"
	CommandRuntimeAddBinding      MethodType = "Runtime.addBinding"
	EventRuntimeBindingCalled     MethodType = "Runtime.bindingCalled"
	EventRuntimeConsoleAPICalled  MethodType = "Runtime.consoleAPICalled"
)

type ExceptionDetails struct {
	Text             string        `json:"text"`
	Exception        *RemoteObject `json:"exception,omitempty"`
}

func (e *ExceptionDetails) Error() string {
	return e.Text
}

type EvaluateParams struct {
	Expression    string `json:"expression"`
	ReturnByValue bool   `json:"returnByValue,omitempty"`
	AwaitPromise  bool   `json:"awaitPromise,omitempty"`
	Silent        bool   `json:"silent,omitempty"`
}

type EvaluateResult struct {
	Result           RemoteObject       `json:"result"`
	ExceptionDetails *ExceptionDetails  `json:"exceptionDetails,omitempty"`
}

type CallArgument struct {
	Value    json.RawMessage `json:"value,omitempty"`
	ObjectID RemoteObjectID  `json:"objectId,omitempty"`
}

type CallFunctionOnParams struct {
	FunctionDeclaration string         `json:"functionDeclaration"`
	ObjectID            RemoteObjectID `json:"objectId,omitempty"`
	Arguments           []CallArgument `json:"arguments,omitempty"`
	ReturnByValue       bool           `json:"returnByValue,omitempty"`
	AwaitPromise        bool           `json:"awaitPromise,omitempty"`
	Silent              bool           `json:"silent,omitempty"`
}

type CallFunctionOnResult struct {
	Result           RemoteObject      `json:"result"`
	ExceptionDetails *ExceptionDetails `json:"exceptionDetails,omitempty"`
}

type AddBindingParams struct {
	Name string `json:"name"`
}

// EventBindingCalledParams carries an arbitrary JSON payload string, per
// spec.md §4.6's BindingCalled{name, payload}.
type EventBindingCalledParams struct {
	Name    string `json:"name"`
	Payload string `json:"payload"`
}

func RuntimeEnable() *runtimeEnableAction { return &runtimeEnableAction{} }

type runtimeEnableAction struct{}

func (a *runtimeEnableAction) Do(ctx context.Context, exec Executor) error {
	return exec.Execute(ctx, CommandRuntimeEnable, nil, nil)
}

func Evaluate(expression string) *evaluateAction {
	return &evaluateAction{p: EvaluateParams{Expression: expression}}
}

type evaluateAction struct{ p EvaluateParams }

func (a *evaluateAction) WithReturnByValue(b bool) *evaluateAction {
	a.p.ReturnByValue = b
	return a
}

func (a *evaluateAction) WithAwaitPromise(b bool) *evaluateAction {
	a.p.AwaitPromise = b
	return a
}

func (a *evaluateAction) Do(ctx context.Context, exec Executor) (*RemoteObject, *ExceptionDetails, error) {
	var res EvaluateResult
	if err := exec.Execute(ctx, CommandRuntimeEvaluate, &a.p, &res); err != nil {
		return nil, nil, err
	}
	return &res.Result, res.ExceptionDetails, nil
}

func CallFunctionOn(fn string) *callFunctionOnAction {
	return &callFunctionOnAction{p: CallFunctionOnParams{FunctionDeclaration: fn}}
}

type callFunctionOnAction struct{ p CallFunctionOnParams }

func (a *callFunctionOnAction) WithObjectID(id RemoteObjectID) *callFunctionOnAction {
	a.p.ObjectID = id
	return a
}

func (a *callFunctionOnAction) WithArguments(args []CallArgument) *callFunctionOnAction {
	a.p.Arguments = args
	return a
}

func (a *callFunctionOnAction) WithReturnByValue(b bool) *callFunctionOnAction {
	a.p.ReturnByValue = b
	return a
}

func (a *callFunctionOnAction) WithAwaitPromise(b bool) *callFunctionOnAction {
	a.p.AwaitPromise = b
	return a
}

func (a *callFunctionOnAction) Do(ctx context.Context, exec Executor) (*RemoteObject, *ExceptionDetails, error) {
	var res CallFunctionOnResult
	if err := exec.Execute(ctx, CommandRuntimeCallFunctionOn, &a.p, &res); err != nil {
		return nil, nil, err
	}
	return &res.Result, res.ExceptionDetails, nil
}

func AddBinding(name string) *addBindingAction {
	return &addBindingAction{p: AddBindingParams{Name: name}}
}

type addBindingAction struct{ p AddBindingParams }

func (a *addBindingAction) Do(ctx context.Context, exec Executor) error {
	return exec.Execute(ctx, CommandRuntimeAddBinding, &a.p, nil)
}
