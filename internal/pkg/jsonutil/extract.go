package jsonutil

import (
	"strings"
)

const codeFence = "```"

// ExtractJSON 从模型回复中提取第一个 JSON 值（对象或数组），支持 ``` 代码块。
func ExtractJSON(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if block, ok := fencedBlock(raw); ok {
		raw = block
	}
	obj := strings.IndexByte(raw, '{')
	arr := strings.IndexByte(raw, '[')
	switch {
	case obj == -1 && arr == -1:
		return "", false
	case arr == -1 || (obj != -1 && obj < arr):
		return balanced(raw, obj, '{', '}')
	default:
		return balanced(raw, arr, '[', ']')
	}
}

// ExtractObject 只提取 JSON 对象，忽略对象之前出现的数组。
func ExtractObject(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if block, ok := fencedBlock(raw); ok {
		raw = block
	}
	start := strings.IndexByte(raw, '{')
	if start == -1 {
		return "", false
	}
	return balanced(raw, start, '{', '}')
}

func fencedBlock(raw string) (string, bool) {
	start := strings.Index(raw, codeFence)
	if start == -1 {
		return "", false
	}
	rest := raw[start+len(codeFence):]
	end := strings.Index(rest, codeFence)
	if end == -1 {
		return "", false
	}
	block := strings.TrimLeft(rest[:end], "\r\n")
	// 跳过语言标记行，如 ```json
	if idx := strings.Index(block, "\n"); idx != -1 {
		first := strings.TrimSpace(block[:idx])
		if first != "" && !strings.ContainsAny(first, "[{") {
			block = block[idx+1:]
		}
	}
	block = strings.TrimSpace(block)
	return block, block != ""
}

// balanced 从 start 开始匹配成对括号，忽略字符串内的括号与转义。
func balanced(raw string, start int, open, close byte) (string, bool) {
	depth := 0
	inString := false
	escape := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escape:
				escape = false
			case ch == '\\':
				escape = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return strings.TrimSpace(raw[start : i+1]), true
			}
		}
	}
	return "", false
}
