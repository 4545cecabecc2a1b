package xe

import "github.com/go-orz/orz"

var (
	ErrInvalidParams      = orz.NewError(10400, "参数无效")
	ErrInvalidToken       = orz.NewError(10403, "令牌无效")
	ErrIncorrectPassword  = orz.NewError(10001, "账户或密码错误")
	ErrAlreadyInitialized = orz.NewError(10002, "系统已完成初始化")

	ErrInvalidSymbol     = orz.NewError(10100, "合约代码无法解析")
	ErrInvalidQuantity   = orz.NewError(10101, "成交数量无效")
	ErrInvalidPrice      = orz.NewError(10102, "成交价格无效")
	ErrInvalidSide       = orz.NewError(10103, "买卖方向无效")
	ErrBatchTooLarge     = orz.NewError(10105, "单次导入条数超过限制")
	ErrCandleRangeEmpty  = orz.NewError(10106, "行情数据为空")
	ErrReportUnavailable = orz.NewError(10107, "复盘报告服务未启用")
)
