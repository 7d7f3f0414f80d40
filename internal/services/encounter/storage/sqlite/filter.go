package sqlite

import (
	"fmt"
	"strings"
	"time"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// SQLCondition is a WHERE clause fragment with positional parameters.
type SQLCondition struct {
	Clause string
	Params []any
}

// EventDeclarations returns the identifiers an event filter may reference.
func EventDeclarations() (*filtering.Declarations, error) {
	return filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("type", filtering.TypeString),
		filtering.DeclareIdent("actor_type", filtering.TypeString),
		filtering.DeclareIdent("actor_id", filtering.TypeString),
		filtering.DeclareIdent("request_id", filtering.TypeString),
		filtering.DeclareIdent("entity_type", filtering.TypeString),
		filtering.DeclareIdent("entity_id", filtering.TypeString),
		filtering.DeclareIdent("seq", filtering.TypeInt),
		filtering.DeclareIdent("ts", filtering.TypeTimestamp),
	)
}

var filterColumns = map[string]string{
	"type":        "event_type",
	"actor_type":  "actor_type",
	"actor_id":    "actor_id",
	"request_id":  "request_id",
	"entity_type": "entity_type",
	"entity_id":   "entity_id",
	"seq":         "seq",
	"ts":          "timestamp",
}

var comparisonOperators = map[string]string{
	"=":  "=",
	"!=": "!=",
	"<":  "<",
	"<=": "<=",
	">":  ">",
	">=": ">=",
}

// ParseEventFilter translates an AIP-160 filter into SQL. An empty filter
// yields an empty condition.
func ParseEventFilter(filterStr string) (SQLCondition, error) {
	if strings.TrimSpace(filterStr) == "" {
		return SQLCondition{}, nil
	}
	decls, err := EventDeclarations()
	if err != nil {
		return SQLCondition{}, fmt.Errorf("create declarations: %w", err)
	}
	filter, err := filtering.ParseFilterString(filterStr, decls)
	if err != nil {
		return SQLCondition{}, fmt.Errorf("parse filter: %w", err)
	}
	return translateExpr(filter.CheckedExpr.Expr)
}

func translateExpr(e *expr.Expr) (SQLCondition, error) {
	if e == nil {
		return SQLCondition{}, nil
	}
	call, ok := e.ExprKind.(*expr.Expr_CallExpr)
	if !ok {
		return SQLCondition{}, fmt.Errorf("unsupported expression type: %T", e.ExprKind)
	}
	return translateCall(call.CallExpr)
}

func translateCall(call *expr.Expr_Call) (SQLCondition, error) {
	switch call.Function {
	case filtering.FunctionAnd:
		return translateJunction(call.Args, "AND")
	case filtering.FunctionOr:
		return translateJunction(call.Args, "OR")
	case filtering.FunctionNot:
		if len(call.Args) != 1 {
			return SQLCondition{}, fmt.Errorf("NOT requires 1 argument")
		}
		inner, err := translateExpr(call.Args[0])
		if err != nil {
			return SQLCondition{}, err
		}
		return SQLCondition{Clause: "NOT (" + inner.Clause + ")", Params: inner.Params}, nil
	}
	op, ok := comparisonOperators[call.Function]
	if !ok {
		return SQLCondition{}, fmt.Errorf("unsupported function: %s", call.Function)
	}
	return translateComparison(call.Args, op)
}

func translateJunction(args []*expr.Expr, op string) (SQLCondition, error) {
	if len(args) != 2 {
		return SQLCondition{}, fmt.Errorf("%s requires 2 arguments", op)
	}
	left, err := translateExpr(args[0])
	if err != nil {
		return SQLCondition{}, err
	}
	right, err := translateExpr(args[1])
	if err != nil {
		return SQLCondition{}, err
	}
	return SQLCondition{
		Clause: fmt.Sprintf("(%s %s %s)", left.Clause, op, right.Clause),
		Params: append(left.Params, right.Params...),
	}, nil
}

func translateComparison(args []*expr.Expr, op string) (SQLCondition, error) {
	if len(args) != 2 {
		return SQLCondition{}, fmt.Errorf("comparison requires 2 arguments")
	}
	ident, ok := args[0].GetExprKind().(*expr.Expr_IdentExpr)
	if !ok {
		return SQLCondition{}, fmt.Errorf("expected identifier, got %T", args[0].GetExprKind())
	}
	column, ok := filterColumns[ident.IdentExpr.GetName()]
	if !ok {
		return SQLCondition{}, fmt.Errorf("unknown field: %s", ident.IdentExpr.GetName())
	}
	value, err := extractValue(args[1])
	if err != nil {
		return SQLCondition{}, err
	}
	return SQLCondition{
		Clause: fmt.Sprintf("%s %s ?", column, op),
		Params: []any{value},
	}, nil
}

func extractValue(e *expr.Expr) (any, error) {
	switch kind := e.GetExprKind().(type) {
	case *expr.Expr_ConstExpr:
		switch constant := kind.ConstExpr.GetConstantKind().(type) {
		case *expr.Constant_StringValue:
			return constant.StringValue, nil
		case *expr.Constant_Int64Value:
			return constant.Int64Value, nil
		case *expr.Constant_Uint64Value:
			return int64(constant.Uint64Value), nil
		case *expr.Constant_BoolValue:
			return constant.BoolValue, nil
		default:
			return nil, fmt.Errorf("unsupported constant type: %T", constant)
		}
	case *expr.Expr_CallExpr:
		if kind.CallExpr.GetFunction() == filtering.FunctionTimestamp && len(kind.CallExpr.GetArgs()) == 1 {
			return extractTimestamp(kind.CallExpr.GetArgs()[0])
		}
		return nil, fmt.Errorf("unsupported function in value position: %s", kind.CallExpr.GetFunction())
	default:
		return nil, fmt.Errorf("expected constant or timestamp, got %T", kind)
	}
}

// extractTimestamp returns epoch milliseconds to match the stored column.
func extractTimestamp(e *expr.Expr) (int64, error) {
	constant, ok := e.GetConstExpr().GetConstantKind().(*expr.Constant_StringValue)
	if !ok {
		return 0, fmt.Errorf("timestamp argument must be a constant string")
	}
	t, err := time.Parse(time.RFC3339Nano, constant.StringValue)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp format: %s", constant.StringValue)
	}
	return toMillis(t), nil
}
