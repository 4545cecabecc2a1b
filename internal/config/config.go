package config

type Config struct {
	Journal  JournalConf  `json:"journal"`
	Binance  BinanceConf  `json:"binance"`
	LLM      LlmConf      `json:"llm"`
	Report   ReportConf   `json:"report"`
	Telegram TelegramConf `json:"telegram"`
}

type JournalConf struct {
	Currency     string `json:"currency"`       // 记账货币，默认 USD
	JwtSecret    string `json:"jwt_secret"`     // 登录令牌密钥，为空时随机生成
	BackfillDays int    `json:"backfill_days"`  // 行情回补天数，默认90
	RefreshCron  string `json:"refresh_cron"`   // 定时刷新表达式，默认每天收盘后执行
	MaxBatchSize int    `json:"max_batch_size"` // 单次导入最大交易条数，默认1000
}

type BinanceConf struct {
	Enabled  bool   `json:"enabled"`   // 是否启用行情回补，关闭时仅接受手工推送的日线
	ProxyURL string `json:"proxy_url"` // 代理地址，例如: http://127.0.0.1:7890
}

type LlmConf struct {
	Provider string `json:"provider"`  // openai/google
	BaseURL  string `json:"base_url"`  // LLM API基础URL，仅openai需要
	APIKey   string `json:"api_key"`   // LLM API密钥
	Model    string `json:"model"`     // 模型名称
	ProxyURL string `json:"proxy_url"` // 代理地址，例如: http://127.0.0.1:7890
}

type ReportConf struct {
	Enabled bool   `json:"enabled"` // 是否定时生成复盘报告
	Cron    string `json:"cron"`    // 生成周期表达式，默认每天一次
}

type TelegramConf struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  string `json:"chat_id"`
}
