// Package dsl 用 CEL (Common Expression Language) 实现交互行过滤表达式。
//
// 表达式语法（CEL 标准语法）：
//   - 数值：rating >= 4.0 / rating > 3.5
//   - 字符串：interaction_type == "purchase" / comment.contains("great")
//   - 逻辑：rating >= 4.0 && interaction_type != "view"
//   - 额外列：extra.channel == "web"（访问不存在的 key 会报错，
//     可用 "channel" in extra 先检查存在性）
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/embedrec/core"
	"github.com/rushteam/embedrec/pkg/conv"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义交互行的可见变量
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("user_id", cel.IntType),
		cel.Variable("product_id", cel.IntType),
		cel.Variable("rating", cel.DoubleType),
		cel.Variable("interaction_type", cel.StringType),
		cel.Variable("comment", cel.StringType),
		cel.Variable("extra", cel.DynType),
	)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	var err error
	celEnvOnce.Do(func() {
		celEnv, err = initCELEnv()
	})
	if celEnv == nil && err == nil {
		err = fmt.Errorf("dsl: cel environment unavailable")
	}
	return celEnv, err
}

// Filter 是编译后的交互行过滤器。
// 表达式编译一次后可并发复用；空表达式表示不过滤。
type Filter struct {
	expr string
	prg  cel.Program
}

// Compile 编译过滤表达式。
// 空表达式返回恒真过滤器；编译错误立即返回，不推迟到求值时。
func Compile(expr string) (*Filter, error) {
	if expr == "" {
		return &Filter{}, nil
	}

	env, err := getCELEnv()
	if err != nil {
		return nil, err
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("dsl: compile %q: %v", expr, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("dsl: program %q: %v", expr, err)
	}
	return &Filter{expr: expr, prg: prg}, nil
}

// Expr 返回原始表达式。
func (f *Filter) Expr() string { return f.expr }

// Match 对单条交互求值，返回布尔结果。
func (f *Filter) Match(row core.Interaction) (bool, error) {
	if f.prg == nil {
		return true, nil
	}

	// 无额外列时给空 map，表达式里的 in 检查不因 null 报错
	extra := conv.NormalizeValues(row.Extra)
	if extra == nil {
		extra = map[string]any{}
	}

	out, _, err := f.prg.Eval(map[string]any{
		"user_id":          row.UserID,
		"product_id":       row.ProductID,
		"rating":           row.Rating,
		"interaction_type": row.Type,
		"comment":          row.Comment,
		"extra":            extra,
	})
	if err != nil {
		return false, fmt.Errorf("dsl: eval %q: %v", f.expr, err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("dsl: expression %q must return boolean, got %T", f.expr, out.Value())
	}
	return result, nil
}

// Apply 过滤整张交互表，保留匹配行（行序与工件行号不变）。
func (f *Filter) Apply(table *core.Table) (*core.Table, error) {
	if f.prg == nil {
		return table, nil
	}

	out := &core.Table{Columns: table.Columns}
	for _, row := range table.Rows {
		ok, err := f.Match(row)
		if err != nil {
			return nil, err
		}
		if ok {
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}
