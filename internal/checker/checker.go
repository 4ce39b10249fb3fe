package checker

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"gauntlet/internal/history"
)

// Result は単一チェッカの判定結果
type Result struct {
	Name    string         `json:"name"`
	Valid   bool           `json:"valid"`
	Details map[string]any `json:"details,omitempty"`
}

// Checker はヒストリを検査して合否を返す
type Checker interface {
	Name() string
	Check(ops []history.Op) Result
}

// Verdict は全チェッカの結果をまとめた最終判定
// Valid は全ての結果が valid のときに限り true になる
type Verdict struct {
	Valid   bool     `json:"valid"`
	Results []Result `json:"results"`
}

// Result は名前で個別の結果を引く。見つからなければ nil
func (v Verdict) Result(name string) *Result {
	for i := range v.Results {
		if v.Results[i].Name == name {
			return &v.Results[i]
		}
	}
	return nil
}

// Aggregate は各チェッカを独立に実行して判定をまとめる
// あるチェッカのパニックは invalid な結果として記録され、
// 他のチェッカの実行を妨げない
func Aggregate(ops []history.Op, checkers ...Checker) (Verdict, error) {
	verdict := Verdict{Valid: true}
	var errs *multierror.Error

	for _, c := range checkers {
		res, err := runChecker(c, ops)
		if err != nil {
			errs = multierror.Append(errs, err)
		}
		verdict.Results = append(verdict.Results, res)
		if !res.Valid {
			verdict.Valid = false
		}
	}
	return verdict, errs.ErrorOrNil()
}

func runChecker(c Checker, ops []history.Op) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("checker %s panicked: %v", c.Name(), r)
			res = Result{
				Name:    c.Name(),
				Valid:   false,
				Details: map[string]any{"panic": fmt.Sprint(r)},
			}
		}
	}()
	return c.Check(ops), nil
}
