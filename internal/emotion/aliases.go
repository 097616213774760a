package emotion

import (
	"fmt"
	"strings"
)

// aliases maps common emotion words (English and Chinese) onto canonical names.
var aliases = map[string]string{
	"happiness": "happy", "joy": "happy", "joyful": "happy", "excited": "happy", "content": "happy", "cheerful": "happy",
	"sadness": "sad", "longing": "sad", "yearning": "sad",
	"melancholy": "melancholic", "depressed": "melancholic", "nostalgic": "melancholic",
	"anger": "angry", "rage": "angry", "fury": "angry", "furious": "angry", "outraged": "angry",
	"determined": "angry", "resolved": "angry", "courageous": "angry",
	"fear": "afraid", "scared": "afraid", "terrified": "afraid", "alarmed": "afraid",
	"disgust": "disgusted", "revolted": "disgusted",
	"surprise": "surprised", "amazed": "surprised", "shocked": "surprised",
	"neutral": "calm", "normal": "calm", "peaceful": "calm", "thoughtful": "calm", "wise": "calm",
	"serene": "calm", "reverent": "calm", "respectful": "calm",

	"高兴": "happy", "快乐": "happy",
	"愤怒": "angry", "生气": "angry",
	"悲伤": "sad", "难过": "sad",
	"恐惧": "afraid", "害怕": "afraid",
	"反感": "disgusted", "厌恶": "disgusted",
	"惊讶": "surprised", "吃惊": "surprised",
	"低落": "melancholic", "忧郁": "melancholic",
	"自然": "calm", "平静": "calm",
}

// Canonical maps an emotion name or alias to its canonical name.
func Canonical(name string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return "", false
	}
	for _, n := range canonicalNames {
		if n == key {
			return n, true
		}
	}
	if c, ok := aliases[key]; ok {
		return c, true
	}
	return "", false
}

// InvalidEmotionError reports an emotion name that is neither canonical nor a
// known alias. Resolution degrades to the character default instead of failing.
type InvalidEmotionError struct {
	Name string
}

func (e *InvalidEmotionError) Error() string {
	return fmt.Sprintf("unrecognized emotion %q", e.Name)
}
