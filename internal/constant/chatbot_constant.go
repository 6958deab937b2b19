package constant

const (
	AssistantSystemPrompt = `你是一個專業的工作助理AI。你的名字是「小助手」。
你擅長：
1. 協助規劃工作排程
2. 提供工作效率建議
3. 幫助撰寫工作相關文件
4. 分析工作問題並提供解決方案

請用繁體中文回應，語氣專業但親切。回應要簡潔，適合手機閱讀。
每次回應不超過300字。`

	// ChatApologyFormat takes the upstream error.
	ChatApologyFormat = "抱歉，處理您的請求時發生錯誤。請稍後再試。\n錯誤詳情：%v"

	TodayPlanDateLayout = "2006年01月02日"
)

var (
	HelpCommands           = []string{"幫助", "help", "功能", "指令", "使用說明"}
	TodayPlanCommands      = []string{"今日規劃", "今天規劃", "今日安排"}
	EfficiencyTipsCommands = []string{"效率技巧", "提高效率", "工作效率", "效率"}
	TimeManagementCommands = []string{"時間管理", "管理時間"}
	StatusCommands         = []string{"處理狀態", "status"}
)

const HelpReply = `🤖 小助手工作助理

📋 主要功能：
• 工作規劃與排程建議
• 效率提升技巧分享  
• 文件撰寫協助
• 問題分析與解決方案
• 錄音轉文字與會議摘要

💬 使用方式：
• 直接對話：「幫我規劃明天的工作」
• 尋求建議：「如何提高工作效率？」
• 文件協助：「幫我寫會議紀錄」
• 問題諮詢：「專案進度落後怎麼辦？」
• 傳送錄音檔：自動轉成逐字稿並整理摘要

🎯 快捷指令：
• 「今日規劃」- 獲得當日工作建議
• 「效率技巧」- 查看提升效率的方法
• 「時間管理」- 學習時間管理技巧
• 「處理狀態」- 查看錄音處理進度

就像跟同事聊天一樣，告訴我你的工作需求吧！`

// TodayPlanReplyFormat takes the formatted date.
const TodayPlanReplyFormat = `📅 %s 工作規劃建議

🌅 早晨安排（9:00-12:00）
• 處理重要且緊急的任務
• 回覆重要郵件和訊息
• 完成需要高專注力的工作

🌞 下午安排（13:00-17:00）
• 開會和團隊協作
• 處理例行性工作
• 規劃明天的任務

🌙 收尾時段（17:00-18:00）
• 整理今日完成事項
• 更新工作進度
• 準備明天的重點工作

💡 小提醒：記得每90分鐘休息一下，保持最佳工作狀態！

有特定的工作項目需要安排嗎？告訴我詳情，我可以給你更具體的建議！`

const EfficiencyTipsReply = `⚡ 工作效率提升秘訣

🍅 番茄工作法
• 25分鐘專注工作 + 5分鐘休息
• 完成4個番茄後休息15-30分鐘
• 避免在番茄時間內處理干擾

📝 任務優先級管理
• 重要且緊急：立即處理
• 重要不緊急：安排時間處理  
• 緊急不重要：委派或快速處理
• 不重要不緊急：刪除或最後處理

🎯 專注力提升
• 關閉非必要通知
• 準備完整的工作環境
• 一次只專注一件事

📱 工具應用
• 使用待辦清單App
• 設定時間提醒
• 定期檢視和調整計劃

想深入了解哪個技巧？或有特定的效率問題想討論？`

const TimeManagementReply = `⏰ 時間管理實用技巧

📊 時間分析
• 記錄一週的時間使用
• 找出時間浪費的環節
• 識別最有效率的時段

🎯 目標設定
• 設定SMART目標（具體、可衡量、可達成、相關、有時限）
• 將大目標分解成小任務
• 定期檢視進度

📅 行程規劃
• 前一天晚上規劃隔天行程
• 預留緩衝時間處理突發狀況
• 將相似任務集中處理

🚫 學會說不
• 評估新任務的重要性
• 避免過度承諾
• 專注在最重要的事情上

需要針對特定情況制定時間管理策略嗎？例如：專案管理、會議安排等？`
