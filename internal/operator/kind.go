package operator

// Kind identifies an operator type on the canvas. The string value is what
// the DSL stores as component_name, so renaming a kind is a format change.
type Kind string

const (
	KindBegin          Kind = "Begin"
	KindAnswer         Kind = "Answer"
	KindRetrieval      Kind = "Retrieval"
	KindGenerate       Kind = "Generate"
	KindCategorize     Kind = "Categorize"
	KindRelevant       Kind = "Relevant"
	KindSwitch         Kind = "Switch"
	KindIteration      Kind = "Iteration"
	KindIterationStart Kind = "IterationStart"
	KindNote           Kind = "Note"
	KindMessage        Kind = "Message"
	KindRewrite        Kind = "RewriteQuestion"
	KindKeyword        Kind = "KeywordExtract"
	KindCode           Kind = "Code"
	KindInvoke         Kind = "Invoke"
	KindTemplate       Kind = "Template"
	KindEmail          Kind = "Email"
	KindConcentrator   Kind = "Concentrator"
	KindAgent          Kind = "Agent"
	KindExeSQL         Kind = "ExeSQL"
	KindCrawler        Kind = "Crawler"
	KindDuckDuckGo     Kind = "DuckDuckGo"
	KindGoogle         Kind = "Google"
	KindBing           Kind = "Bing"
	KindWikipedia      Kind = "Wikipedia"
	KindArXiv          Kind = "ArXiv"
	KindPubMed         Kind = "PubMed"
	KindGitHub         Kind = "GitHub"
	KindDeepL          Kind = "DeepL"
	KindBaiduFanyi     Kind = "BaiduFanyi"
	KindWenCai         Kind = "WenCai"
	KindJin10          Kind = "Jin10"
	KindTuShare        Kind = "TuShare"
)

// BranchKind describes how a kind encodes branch targets inside its form.
type BranchKind int

const (
	// BranchNone means the kind has a single anonymous output anchor.
	BranchNone BranchKind = iota
	// BranchCategorize keys branches by name under category_description.
	BranchCategorize
	// BranchRelevant has exactly two anchors, "yes" and "no".
	BranchRelevant
	// BranchSwitch has one anchor per conditions[] entry plus "else".
	BranchSwitch
)

// Form field names for branch targets. Empty string means "not connected";
// node ids are never empty, so no separate null sentinel is needed.
const (
	FieldCategoryDescription = "category_description"
	FieldYes                 = "yes"
	FieldNo                  = "no"
	FieldConditions          = "conditions"
	FieldElse                = "else"
	FieldTo                  = "to"
)
