package normalize

// domainToSource maps a publisher's feed domain to its display name in each
// supported language. Ported from the bilingual table the engine's original
// content processor used to resolve a human-readable source name.
var domainToSource = map[string]map[string]string{
	"cnn.com":             {"en": "CNN", "zh": "有线电视新闻网"},
	"bbc.com":             {"en": "BBC", "zh": "英国广播公司"},
	"bbc.co.uk":           {"en": "BBC", "zh": "英国广播公司"},
	"wsj.com":             {"en": "Wall Street Journal", "zh": "华尔街日报"},
	"foreignaffairs.com":  {"en": "Foreign Affairs", "zh": "外交事务"},
	"ft.com":              {"en": "Financial Times", "zh": "金融时报"},
	"reuters.com":         {"en": "Reuters", "zh": "路透社"},
	"theatlantic.com":     {"en": "The Atlantic", "zh": "大西洋月刊"},
	"economist.com":       {"en": "The Economist", "zh": "经济学人"},
	"nytimes.com":         {"en": "The New York Times", "zh": "纽约时报"},
	"bloomberg.com":       {"en": "Bloomberg", "zh": "彭博社"},
	"theconversation.com": {"en": "The Conversation", "zh": "对话"},
	"nautil.us":           {"en": "Nautilus", "zh": "鹦鹉螺"},
	"longreads.com":       {"en": "Longreads", "zh": "长读"},
	"nature.com":          {"en": "Nature", "zh": "《自然》"},
	"science.org":         {"en": "Science", "zh": "《科学》"},
	"eff.org":             {"en": "EFF", "zh": "电子前哨基金会"},
	"ieee.org":            {"en": "IEEE", "zh": "电气和电子工程师协会"},
	"brookings.edu":       {"en": "Brookings", "zh": "布鲁金斯学会"},
	"theguardian.com":     {"en": "The Guardian", "zh": "卫报"},
	"washingtonpost.com":  {"en": "Washington Post", "zh": "华盛顿邮报"},
	"apnews.com":          {"en": "AP News", "zh": "美联社"},
	"npr.org":             {"en": "NPR", "zh": "美国公共广播"},
	"wired.com":           {"en": "Wired", "zh": "连线"},
	"arstechnica.com":     {"en": "Ars Technica", "zh": "Ars Technica"},
	"techcrunch.com":      {"en": "TechCrunch", "zh": "TechCrunch"},
	"theverge.com":        {"en": "The Verge", "zh": "The Verge"},
	"hackernews.com":      {"en": "Hacker News", "zh": "Hacker News"},
}
