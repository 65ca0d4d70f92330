package enrich

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"linenote/internal/domain"
)

// Topic selects the instruction template given to the summarizer.
type Topic string

const (
	TopicAudio   Topic = "audio"
	TopicSocial  Topic = "social"
	TopicWeb     Topic = "web"
	TopicGeneral Topic = "general"
)

// TopicFor maps an extraction source to its template.
func TopicFor(src domain.SourceKind) Topic {
	switch src {
	case domain.SourceTranscript:
		return TopicAudio
	case domain.SourceSocialPost:
		return TopicSocial
	case domain.SourceWebPage:
		return TopicWeb
	default:
		return TopicGeneral
	}
}

// Templates holds one prompt per topic. "{time}" and "{content}" are
// substituted when a prompt is rendered.
type Templates map[Topic]string

const sharedRules = `
現在時間：{time}
請使用繁體中文回答，條列重點，不要超過 300 字，不要加入原文沒有的資訊。

內容：
{content}`

// DefaultTemplates are used for any topic the prompt file leaves out.
func DefaultTemplates() Templates {
	return Templates{
		TopicAudio: "以下是一段語音備忘的逐字稿，可能有辨識錯誤。請整理出說話者想記下的事情、待辦事項與提到的日期或人名。" +
			sharedRules,
		TopicSocial: "以下是一則社群貼文。請摘要作者的主要觀點，列出值得保存的資訊或連結，並註明貼文的語氣。" +
			sharedRules,
		TopicWeb: "以下是一篇網頁文章的內容。請摘要文章主旨與三到五個關鍵重點，若有數據或結論請保留。" +
			sharedRules,
		TopicGeneral: "以下是使用者想記錄的一段文字。請整理成簡潔的筆記摘要。" +
			sharedRules,
	}
}

type promptFile struct {
	Templates map[string]string `yaml:"templates"`
}

// LoadTemplates reads a YAML prompt file and layers it over the defaults.
// An empty path returns the defaults.
func LoadTemplates(path string) (Templates, error) {
	tpl := DefaultTemplates()
	if path == "" {
		return tpl, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}
	var pf promptFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse prompts file %s: %w", path, err)
	}
	for name, body := range pf.Templates {
		topic := Topic(strings.ToLower(strings.TrimSpace(name)))
		if _, known := tpl[topic]; !known {
			return nil, fmt.Errorf("prompts file %s: unknown topic %q", path, name)
		}
		if !strings.Contains(body, "{content}") {
			return nil, fmt.Errorf("prompts file %s: template %q has no {content} placeholder", path, name)
		}
		tpl[topic] = body
	}
	return tpl, nil
}

// Render fills the template for topic. Unknown topics use the general one.
func (t Templates) Render(topic Topic, timestamp, content string) string {
	body, ok := t[topic]
	if !ok {
		body = t[TopicGeneral]
	}
	return strings.NewReplacer("{time}", timestamp, "{content}", content).Replace(body)
}
