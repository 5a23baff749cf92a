package operator

// llmToggles are the per-slider enable switches the form widgets render
// next to each sampling parameter. They mean nothing to the execution
// backend and are stripped at compile time.
var llmToggles = []string{
	"temperatureEnabled",
	"topPEnabled",
	"presencePenaltyEnabled",
	"frequencyPenaltyEnabled",
	"maxTokensEnabled",
}

func llmForm(extra map[string]any) map[string]any {
	form := map[string]any{
		"llm_id":                  "",
		"temperature":             0.1,
		"top_p":                   0.3,
		"presence_penalty":        0.4,
		"frequency_penalty":       0.7,
		"max_tokens":              256,
		"temperatureEnabled":      false,
		"topPEnabled":             false,
		"presencePenaltyEnabled":  false,
		"frequencyPenaltyEnabled": false,
		"maxTokensEnabled":        false,
	}
	for k, v := range extra {
		form[k] = v
	}
	return form
}

func searchForm(extra map[string]any) map[string]any {
	form := map[string]any{"top_n": 10}
	for k, v := range extra {
		form[k] = v
	}
	return form
}

// DefaultCatalog builds the built-in operator catalog. An overlay file can
// adjust default forms and the restricted-pairs table afterwards (see
// Loader), so new deployments extend this by data, not code.
func DefaultCatalog() *Catalog {
	c := NewCatalog()

	for _, e := range []*Entry{
		{Kind: KindBegin, DefaultForm: map[string]any{
			"prologue": "Hi! I'm your assistant, what can I do for you?",
		}},
		{Kind: KindAnswer, DefaultForm: map[string]any{}},
		{Kind: KindRetrieval, DefaultForm: map[string]any{
			"similarity_threshold":       0.2,
			"keywords_similarity_weight": 0.3,
			"top_n":                      8,
			"kb_ids":                     []any{},
			"empty_response":             "",
		}},
		{Kind: KindGenerate, DefaultForm: llmForm(map[string]any{
			"prompt": "", "cite": true, "message_history_window_size": 12,
		}), UselessFields: llmToggles},
		{Kind: KindCategorize, Branch: BranchCategorize, DefaultForm: llmForm(map[string]any{
			FieldCategoryDescription:      map[string]any{},
			"message_history_window_size": 1,
		}), UselessFields: llmToggles},
		{Kind: KindRelevant, Branch: BranchRelevant, DefaultForm: llmForm(map[string]any{
			FieldYes: "", FieldNo: "",
		}), UselessFields: llmToggles},
		{Kind: KindSwitch, Branch: BranchSwitch, DefaultForm: map[string]any{
			FieldConditions: []any{},
			FieldElse:       "",
		}},
		{Kind: KindIteration, Container: true, DragHandle: ".iteration-header", DefaultForm: map[string]any{
			"delimiter": ",",
		}},
		{Kind: KindIterationStart, DefaultForm: map[string]any{}},
		{Kind: KindNote, DragHandle: ".note-header", DefaultForm: map[string]any{
			"text": "",
		}},
		{Kind: KindMessage, DefaultForm: map[string]any{
			"messages": []any{},
		}},
		{Kind: KindRewrite, DefaultForm: llmForm(map[string]any{
			"language": "",
		}), UselessFields: llmToggles},
		{Kind: KindKeyword, DefaultForm: llmForm(map[string]any{
			"top_n": 3,
		}), UselessFields: llmToggles},
		{Kind: KindCode, DefaultForm: map[string]any{
			"lang":   "python",
			"script": "",
		}},
		{Kind: KindInvoke, DefaultForm: map[string]any{
			"url":       "",
			"method":    "GET",
			"timeout":   60,
			"headers":   "",
			"proxy":     "",
			"variables": []any{},
		}},
		{Kind: KindTemplate, DefaultForm: map[string]any{
			"content":    "",
			"parameters": []any{},
		}},
		{Kind: KindEmail, DefaultForm: map[string]any{
			"smtp_server": "",
			"smtp_port":   465,
			"email":       "",
			"to_email":    "",
			"cc_email":    "",
			"subject":     "",
			"content":     "",
		}},
		{Kind: KindConcentrator, DefaultForm: map[string]any{}},
		{Kind: KindAgent, DefaultForm: llmForm(map[string]any{
			"sys_prompt": "", "tools": []any{}, "max_rounds": 5,
		}), UselessFields: llmToggles},
		{Kind: KindExeSQL, DefaultForm: map[string]any{
			"db_type":  "mysql",
			"host":     "",
			"port":     3306,
			"username": "",
			"password": "",
			"database": "",
			"top_n":    30,
		}},
		{Kind: KindCrawler, DefaultForm: map[string]any{
			"proxy":        "",
			"extract_type": "markdown",
		}},
		{Kind: KindDuckDuckGo, DefaultForm: searchForm(map[string]any{"channel": "text"})},
		{Kind: KindGoogle, DefaultForm: searchForm(map[string]any{"api_key": "", "country": "us", "language": "en"})},
		{Kind: KindBing, DefaultForm: searchForm(map[string]any{"api_key": "", "country": "US", "language": "en"})},
		{Kind: KindWikipedia, DefaultForm: searchForm(map[string]any{"language": "en"})},
		{Kind: KindArXiv, DefaultForm: searchForm(map[string]any{"sort_by": "relevance"})},
		{Kind: KindPubMed, DefaultForm: searchForm(map[string]any{"email": ""})},
		{Kind: KindGitHub, DefaultForm: searchForm(nil)},
		{Kind: KindDeepL, DefaultForm: map[string]any{"auth_key": "", "source_lang": "EN", "target_lang": "ZH"}},
		{Kind: KindBaiduFanyi, DefaultForm: map[string]any{"appid": "", "secret_key": "", "trans_type": "translate"}},
		{Kind: KindWenCai, DefaultForm: searchForm(map[string]any{"query_type": "stock"})},
		{Kind: KindJin10, DefaultForm: map[string]any{"type": "flash", "secret_key": ""}},
		{Kind: KindTuShare, DefaultForm: map[string]any{"token": "", "src": "eastmoney"}},
	} {
		c.Register(e)
	}

	// Begin has no input anchor and notes are annotations, so neither may
	// appear as an edge endpoint's target/source respectively.
	for _, k := range c.Kinds() {
		c.Forbid(k, KindBegin)
		c.Forbid(KindNote, k)
		c.Forbid(k, KindNote)
	}

	return c
}
