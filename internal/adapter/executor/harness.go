package executor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"text/template"

	"gitlab.com/fcv-grader.net/internal/core/pyjson"
)

const (
	resultMarker = "__GRADER_RESULT__:"
	errorMarker  = "__GRADER_ERROR__:"
	// Python harnesses report their own == verdict, which JSON cannot carry (tuples, int keys)
	equalMarker = "__GRADER_EQUAL__:"
	// non-finite floats travel as {"__grader_float__": "nan"} because JSON has no literal for them
	floatTag = "__grader_float__"

	exitRuntime  = 1
	exitLoad     = 3
	exitLookup   = 4
	exitCoercion = 5

	pythonHarnessFile  = "harness.py"
	pythonSolutionFile = "solution.py"
	jsHarnessFile      = "harness.cjs"

	legacyEntryPoint = "solution"
)

var pythonHarness = template.Must(template.New(pythonHarnessFile).Parse(`import json
import os
import sys

_RESULT_MARKER = {{.ResultMarker}}
_ERROR_MARKER = {{.ErrorMarker}}
_EQUAL_MARKER = {{.EqualMarker}}
_FLOAT_TAG = {{.FloatTag}}


def _encode(value):
    if isinstance(value, float) and (value != value or value in (float("inf"), float("-inf"))):
        return {_FLOAT_TAG: repr(value)}
    if isinstance(value, (list, tuple)):
        return [_encode(item) for item in value]
    if isinstance(value, dict):
        return {key: _encode(item) for key, item in value.items()}
    return value


def _run():
    here = os.path.dirname(os.path.abspath(__file__))
    try:
        with open(os.path.join(here, {{.SourceFile}}), encoding="utf-8") as handle:
            source = handle.read()
        namespace = {"__name__": "__solution__"}
        exec(compile(source, {{.SourceFile}}, "exec"), namespace)
    except BaseException as exc:
        return {{.ExitLoad}}, str(exc), None, None

    if {{.Entry}} not in namespace:
        return {{.ExitLookup}}, "", None, None
{{- if .CoercionFailed}}

    return {{.ExitCoercion}}, "", None, None
{{- else}}

    try:
{{- if .Legacy}}
        result = namespace[{{.Entry}}]({{.RawInput}})
        if not isinstance(result, str):
            result = str(result)
        equal = None
{{- else}}
        result = namespace[{{.Entry}}](*{{.Args}})
        equal = bool(result == {{.Expected}})
{{- end}}
        return 0, None, json.dumps(_encode(result)), equal
    except BaseException as exc:
        return {{.ExitRuntime}}, str(exc), None, None
{{- end}}


if __name__ == "__main__":
    _stdout = sys.stdout
    sys.stdout = sys.stderr
    _code, _message, _payload, _equal = _run()
    sys.stdout = _stdout
    if _payload is not None:
        sys.stdout.write("\n" + _RESULT_MARKER + _payload + "\n")
    if _equal is not None:
        sys.stdout.write(_EQUAL_MARKER + ("true" if _equal else "false") + "\n")
    if _message is not None:
        sys.stderr.write("\n" + _ERROR_MARKER + _message + "\n")
    sys.stdout.flush()
    sys.stderr.flush()
    os._exit(_code)
`))

var jsTrailer = template.Must(template.New(jsHarnessFile).Parse(`
;(function () {
  const resultMarker = {{.ResultMarker}};
  const errorMarker = {{.ErrorMarker}};
  const finish = function (stream, text, code) {
    stream.write(text, function () {
      process.exit(code);
    });
  };
  const fail = function (code, message) {
    finish(process.stderr, "\n" + errorMarker + message + "\n", code);
  };
  const describe = function (err) {
    return err && err.message !== undefined ? String(err.message) : String(err);
  };
  const emit = function (value) {
    let text;
    try {
      text = JSON.stringify(value);
    } catch (err) {
      fail({{.ExitRuntime}}, describe(err));
      return;
    }
    finish(process.stdout, "\n" + resultMarker + text + "\n", 0);
  };
  if (typeof {{.Name}} !== "function") {
    fail({{.ExitLookup}}, "");
    return;
  }
  try {
    const value = {{.Name}}.apply(null, {{.Args}});
    if (value && typeof value.then === "function") {
      value.then(emit, function (err) {
        fail({{.ExitRuntime}}, describe(err));
      });
    } else {
      emit(value);
    }
  } catch (err) {
    fail({{.ExitRuntime}}, describe(err));
  }
})();
`))

type pythonHarnessData struct {
	ResultMarker   string
	ErrorMarker    string
	EqualMarker    string
	FloatTag       string
	SourceFile     string
	Entry          string
	Args           string
	Expected       string
	RawInput       string
	Legacy         bool
	CoercionFailed bool
	ExitLoad       int
	ExitLookup     int
	ExitCoercion   int
	ExitRuntime    int
}

func newPythonHarnessData(entry string) pythonHarnessData {
	return pythonHarnessData{
		ResultMarker: pyjson.Literal(resultMarker),
		ErrorMarker:  pyjson.Literal(errorMarker),
		EqualMarker:  pyjson.Literal(equalMarker),
		FloatTag:     pyjson.Literal(floatTag),
		SourceFile:   pyjson.Literal(pythonSolutionFile),
		Entry:        pyjson.Literal(entry),
		Args:         "[]",
		Expected:     "None",
		RawInput:     pyjson.Literal(""),
		ExitLoad:     exitLoad,
		ExitLookup:   exitLookup,
		ExitCoercion: exitCoercion,
		ExitRuntime:  exitRuntime,
	}
}

// renderPythonHarness builds the harness calling name with already coerced args
// and comparing the result with expected using Python's ==.
// A nil args slice with coercionFailed set makes the harness stop right after the lookup.
func renderPythonHarness(name string, args []any, expected any, coercionFailed bool) ([]byte, error) {
	data := newPythonHarnessData(name)
	data.CoercionFailed = coercionFailed
	if !coercionFailed {
		if args == nil {
			args = []any{}
		}
		data.Args = pyjson.Literal(args)
		data.Expected = pyjson.Literal(expected)
	}
	return execute(pythonHarness, data)
}

// renderLegacyHarness builds the harness calling solution(raw_input)
func renderLegacyHarness(rawInput string) ([]byte, error) {
	data := newPythonHarnessData(legacyEntryPoint)
	data.Legacy = true
	data.RawInput = pyjson.Literal(rawInput)
	return execute(pythonHarness, data)
}

type jsHarnessData struct {
	ResultMarker string
	ErrorMarker  string
	Name         string
	Args         string
	ExitLookup   int
	ExitRuntime  int
}

// renderJavaScriptHarness appends the call trailer to the verbatim source
func renderJavaScriptHarness(code, name string, args []any) ([]byte, error) {
	if args == nil {
		args = []any{}
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode arguments: %w", err)
	}

	trailer, err := execute(jsTrailer, jsHarnessData{
		ResultMarker: strconv.Quote(resultMarker),
		ErrorMarker:  strconv.Quote(errorMarker),
		Name:         name,
		Args:         string(argsJSON),
		ExitLookup:   exitLookup,
		ExitRuntime:  exitRuntime,
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(code)
	buf.Write(trailer)
	return buf.Bytes(), nil
}

func execute(tmpl *template.Template, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render harness: %w", err)
	}
	return buf.Bytes(), nil
}
