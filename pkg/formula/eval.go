package formula

import (
	"fmt"
	"math"
)

// Resolver supplies the value of a referenced curve at the point being
// evaluated.
type Resolver func(name string) (float64, error)

// functions maps function names to their implementations. Every function
// takes one argument; domain violations are reported as errors rather
// than producing NaN or Inf.
var functions = map[string]func(float64) (float64, error){
	"log":   safeLog(math.Log, "log"),
	"ln":    safeLog(math.Log, "ln"),
	"log10": safeLog(math.Log10, "log10"),
	"log2":  safeLog(math.Log2, "log2"),
	"exp":   func(x float64) (float64, error) { return math.Exp(x), nil },
	"sqrt": func(x float64) (float64, error) {
		if x < 0 {
			return 0, fmt.Errorf("sqrt of negative value %g", x)
		}
		return math.Sqrt(x), nil
	},
	"abs": func(x float64) (float64, error) { return math.Abs(x), nil },
	"sin": func(x float64) (float64, error) { return math.Sin(x), nil },
	"cos": func(x float64) (float64, error) { return math.Cos(x), nil },
	"tan": func(x float64) (float64, error) { return math.Tan(x), nil },
}

func safeLog(fn func(float64) float64, name string) func(float64) (float64, error) {
	return func(x float64) (float64, error) {
		if x <= 0 {
			return 0, fmt.Errorf("%s of non-positive value %g", name, x)
		}
		return fn(x), nil
	}
}

// Eval evaluates an expression, resolving placeholder references through
// the supplied resolver.
func Eval(e Expr, resolve Resolver) (float64, error) {
	switch ex := e.(type) {
	case *NumberLiteral:
		return ex.Value, nil

	case *PlaceholderRef:
		return resolve(ex.Name)

	case *UnaryExpr:
		val, err := Eval(ex.Expr, resolve)
		if err != nil {
			return 0, err
		}
		if ex.Op == TokenMinus {
			return -val, nil
		}
		return val, nil

	case *BinaryExpr:
		left, err := Eval(ex.Left, resolve)
		if err != nil {
			return 0, err
		}
		right, err := Eval(ex.Right, resolve)
		if err != nil {
			return 0, err
		}
		return applyOp(ex.Op, left, right)

	case *FunctionCall:
		arg, err := Eval(ex.Args[0], resolve)
		if err != nil {
			return 0, err
		}
		fn, ok := functions[ex.Name]
		if !ok {
			return 0, fmt.Errorf("unknown function %q", ex.Name)
		}
		return fn(arg)

	case *ParenExpr:
		return Eval(ex.Expr, resolve)

	default:
		return 0, fmt.Errorf("unknown expression type %T", e)
	}
}

// applyOp applies a binary operator
func applyOp(op TokenType, left, right float64) (float64, error) {
	switch op {
	case TokenPlus:
		return left + right, nil
	case TokenMinus:
		return left - right, nil
	case TokenMultiply:
		return left * right, nil
	case TokenDivide:
		if right == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return left / right, nil
	case TokenMod:
		if right == 0 {
			return 0, fmt.Errorf("modulo by zero")
		}
		return math.Mod(left, right), nil
	case TokenPower:
		return math.Pow(left, right), nil
	default:
		return 0, fmt.Errorf("unknown operator %d", op)
	}
}
