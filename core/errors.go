package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 使用场景：
//   - 数据集错误：SCHEMA_ERROR（缺少必需列）
//   - 相似度错误：DIMENSION_MISMATCH（向量维度不一致）
//   - 指标错误：METRIC_PRECONDITION（空的真实集/预测集）
//   - 存储错误：NOT_FOUND, NOT_SUPPORTED
type DomainError struct {
	Code    string // 错误代码（如 "SCHEMA_ERROR", "DIMENSION_MISMATCH"）
	Message string // 错误消息
	Module  string // 模块名称（如 "dataset", "similarity", "metric"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*DomainError); ok {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeSchemaError        = "SCHEMA_ERROR"        // 缺少必需列，计算开始前快速失败
	ErrorCodeDimensionMismatch  = "DIMENSION_MISMATCH"  // 向量维度不一致
	ErrorCodeMetricPrecondition = "METRIC_PRECONDITION" // 指标分母为空（上游数据问题）
	ErrorCodeInvalidInput       = "INVALID_INPUT"       // 输入无效
	ErrorCodeNotFound           = "NOT_FOUND"           // 资源不存在
	ErrorCodeNotSupported       = "NOT_SUPPORTED"       // 操作不支持
)

// 模块名称常量
const (
	ModuleDataset    = "dataset"    // 数据集拆分模块
	ModuleEmbedding  = "embedding"  // 向量聚合模块
	ModuleSimilarity = "similarity" // 相似度计算模块
	ModuleMetric     = "metric"     // 排序指标模块
	ModuleStore      = "store"      // 存储模块
	ModuleServing    = "serving"    // 服务模块
)

// hasCode 检查错误是否携带指定错误代码
func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsSchemaError 检查错误是否为 SCHEMA_ERROR
func IsSchemaError(err error) bool {
	return hasCode(err, ErrorCodeSchemaError)
}

// IsDimensionMismatch 检查错误是否为 DIMENSION_MISMATCH
func IsDimensionMismatch(err error) bool {
	return hasCode(err, ErrorCodeDimensionMismatch)
}

// IsMetricPrecondition 检查错误是否为 METRIC_PRECONDITION
func IsMetricPrecondition(err error) bool {
	return hasCode(err, ErrorCodeMetricPrecondition)
}

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool {
	return hasCode(err, ErrorCodeInvalidInput)
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	return hasCode(err, ErrorCodeNotFound)
}

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool {
	return hasCode(err, ErrorCodeNotSupported)
}
