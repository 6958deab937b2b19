package audio

import "fmt"

// SummaryPromptTemplate takes the (possibly truncated) transcript.
const SummaryPromptTemplate = `以下是一段會議或錄音的逐字稿，請用繁體中文整理成結構化摘要，包含：

1. 📌 重點摘要（3-5 點）
2. 💬 討論主題
3. ✅ 決議事項
4. 📋 待辦事項（負責人與內容）
5. ⏰ 時間節點與截止日期
6. 👥 提及的人員
7. 🔢 關鍵數據

若某項目在逐字稿中沒有提到，請寫「未提及」。

逐字稿：
%s`

const truncationNotice = "\n\n（逐字稿過長，摘要僅根據前段內容產生）"

// SegmentLabel is the human readable label for chunk index i.
func SegmentLabel(i int) string {
	return fmt.Sprintf("【第 %d 段】", i+1)
}

func failedPlaceholder(detail string) string {
	return fmt.Sprintf("（此段轉錄失敗：%s）", detail)
}
