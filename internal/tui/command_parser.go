package tui

import (
	"regexp"
	"strings"
)

// CommandType 命令类型
type CommandType int

const (
	CommandTypeUnknown CommandType = iota
	CommandTypeNew
	CommandTypeDownload
	CommandTypeCopy
	CommandTypeSidebar
	CommandTypeHelp
)

// Command 解析后的命令
type Command struct {
	Type CommandType
	Raw  string
	// Format 下载格式，仅 CommandTypeDownload 使用
	Format string
}

// CommandParser 斜杠命令解析器
type CommandParser struct {
	newPatterns      []*regexp.Regexp
	downloadPatterns []*regexp.Regexp
	copyPatterns     []*regexp.Regexp
	sidebarPatterns  []*regexp.Regexp
	helpPatterns     []*regexp.Regexp
}

// NewCommandParser 创建新的命令解析器
func NewCommandParser() *CommandParser {
	parser := &CommandParser{}
	parser.initializePatterns()
	return parser
}

// initializePatterns 初始化正则表达式模式
func (p *CommandParser) initializePatterns() {
	p.newPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^/new\s*$`),
		regexp.MustCompile(`(?i)^/reset\s*$`),
	}

	// /stl /gltf /glb 以及 /download <format>
	p.downloadPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^/(stl|gltf|glb)\s*$`),
		regexp.MustCompile(`(?i)^/download\s+(stl|gltf|glb)\s*$`),
	}

	p.copyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^/copy\s*$`),
	}

	p.sidebarPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^/sidebar\s*$`),
	}

	p.helpPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^/help\s*$`),
		regexp.MustCompile(`^/\?\s*$`),
	}
}

// Parse 解析命令字符串，不是已知命令时返回 nil，输入作为提示词发送
func (p *CommandParser) Parse(input string) *Command {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return nil
	}

	for _, pattern := range p.newPatterns {
		if pattern.MatchString(input) {
			return &Command{Type: CommandTypeNew, Raw: input}
		}
	}

	for _, pattern := range p.downloadPatterns {
		if matches := pattern.FindStringSubmatch(input); matches != nil {
			return &Command{
				Type:   CommandTypeDownload,
				Raw:    input,
				Format: strings.ToLower(matches[1]),
			}
		}
	}

	for _, pattern := range p.copyPatterns {
		if pattern.MatchString(input) {
			return &Command{Type: CommandTypeCopy, Raw: input}
		}
	}

	for _, pattern := range p.sidebarPatterns {
		if pattern.MatchString(input) {
			return &Command{Type: CommandTypeSidebar, Raw: input}
		}
	}

	for _, pattern := range p.helpPatterns {
		if pattern.MatchString(input) {
			return &Command{Type: CommandTypeHelp, Raw: input}
		}
	}

	return nil
}

// FormatCommandType 格式化命令类型为字符串
func FormatCommandType(cmdType CommandType) string {
	switch cmdType {
	case CommandTypeNew:
		return "NEW"
	case CommandTypeDownload:
		return "DOWNLOAD"
	case CommandTypeCopy:
		return "COPY"
	case CommandTypeSidebar:
		return "SIDEBAR"
	case CommandTypeHelp:
		return "HELP"
	default:
		return "UNKNOWN"
	}
}
