// Package pipeline 把离线打分流程拆成可组合的 Step 链。
//
// 每个 Step 可以声明一个产出工件：工件已存在时跳过该步，
// 让重跑只补算缺失的工件。
package pipeline

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Step 是流水线中的一步。
type Step interface {
	// Name 返回步骤名，用于日志。
	Name() string

	// Artifact 返回该步产出的工件路径，空串表示无工件、总是执行。
	Artifact() string

	// Run 执行该步。
	Run(ctx context.Context) error
}

// Pipeline 顺序执行 Step 链，任何一步失败立即中止。
type Pipeline struct {
	Steps []Step

	// Logger 可为 nil。
	Logger *zap.Logger
}

// Run 依次执行各步骤，工件已存在的步骤被跳过。
func (p *Pipeline) Run(ctx context.Context) error {
	for _, step := range p.Steps {
		if artifact := step.Artifact(); artifact != "" {
			if _, err := os.Stat(artifact); err == nil {
				if p.Logger != nil {
					p.Logger.Info("skipping step, artifact exists",
						zap.String("step", step.Name()),
						zap.String("artifact", artifact))
				}
				continue
			}
		}

		if p.Logger != nil {
			p.Logger.Info("running step", zap.String("step", step.Name()))
		}
		if err := step.Run(ctx); err != nil {
			return fmt.Errorf("pipeline: step %s: %w", step.Name(), err)
		}
	}
	return nil
}

// FuncStep 用函数构造 Step。
type FuncStep struct {
	StepName     string
	ArtifactPath string
	Fn           func(ctx context.Context) error
}

func (s *FuncStep) Name() string     { return s.StepName }
func (s *FuncStep) Artifact() string { return s.ArtifactPath }

func (s *FuncStep) Run(ctx context.Context) error {
	return s.Fn(ctx)
}
