package checker

import (
	"sort"

	"gauntlet/internal/history"
)

// RegisterModel は read/write/cas を持つ単一レジスタの逐次仕様
// 初期状態は「未書き込み」（nil）
func RegisterModel() Model {
	return Model{
		Init: func() any { return nil },
		Step: func(state any, input, output history.Op) (bool, any) {
			switch input.F {
			case "read":
				return valueEqual(state, output.Value), state
			case "write":
				return true, input.Value
			case "cas":
				pair, ok := input.Value.([]int)
				if !ok || len(pair) != 2 {
					return false, state
				}
				if !valueEqual(state, pair[0]) {
					return false, state
				}
				return true, pair[1]
			default:
				return false, state
			}
		},
		Equal: valueEqual,
	}
}

func valueEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ai, aok := a.(int)
	bi, bok := b.(int)
	if aok && bok {
		return ai == bi
	}
	return a == b
}

// RegisterChecker はキーごとのレジスタ線形化可能性を検査する
type RegisterChecker struct{}

// NewRegisterChecker は新しいRegisterCheckerを作成する
func NewRegisterChecker() *RegisterChecker {
	return &RegisterChecker{}
}

// Name はチェッカ名を返す
func (c *RegisterChecker) Name() string {
	return "linearizable-register"
}

// Check は各キーを独立に検査し、1つでも線形化不能なキーが
// あれば invalid を返す
func (c *RegisterChecker) Check(ops []history.Op) Result {
	model := RegisterModel()
	byKey := PartitionByKey(ops)

	var violations []string
	for key, keyOps := range byKey {
		if !Linearizable(model, keyOps) {
			violations = append(violations, key)
		}
	}
	sort.Strings(violations)

	details := map[string]any{
		"keys-checked": len(byKey),
	}
	if len(violations) > 0 {
		details["violations"] = violations
	}
	return Result{
		Name:    c.Name(),
		Valid:   len(violations) == 0,
		Details: details,
	}
}
