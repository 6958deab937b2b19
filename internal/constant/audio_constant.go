package constant

const (
	// AudioReceivedReply takes the file size in MB.
	AudioReceivedReply = "🎙️ 收到您的錄音檔（%.1f MB）！\n\n正在轉換為文字並整理摘要，完成後會傳送給您。"

	// AudioBackgroundReply takes the file size in MB.
	AudioBackgroundReply = "🎙️ 收到您的錄音檔（%.1f MB）！\n\n檔案較大，已排入背景處理。完成後會主動傳送逐字稿與摘要，期間可以繼續使用其他功能。\n\n傳送「處理狀態」可查看進度，如需取消請點選下方「取消處理」按鈕。"

	// AudioTooLargeReply takes the file size and the limit in MB.
	AudioTooLargeReply = "❌ 檔案過大（%.1f MB），目前最多支援 %.0f MB 的錄音檔。\n\n請先壓縮或分段後再上傳。"

	AudioBusyReply = "⏳ 目前處理中的錄音檔較多，請稍後再上傳一次。"

	AudioDownloadFailedReply = "❌ 無法下載錄音檔，請稍後再試。\n錯誤詳情：%v"

	AudioProcessingErrorReply = "❌ 處理錄音檔時發生未預期的錯誤，請稍後再試。"

	// AudioResultHeader takes filename, size MB, method, chunk count,
	// failed chunk count and elapsed seconds.
	AudioResultHeader = "✅ 錄音處理完成\n\n📁 檔案：%s\n📦 大小：%.1f MB\n✂️ 分段方式：%s（共 %d 段，失敗 %d 段）\n⏱️ 處理時間：%.0f 秒"

	// AudioFailedHeader takes filename and failed chunk count.
	AudioFailedHeader = "❌ 錄音轉文字失敗\n\n📁 檔案：%s\n所有 %d 個分段都無法轉錄，請確認檔案格式後重新上傳。"

	AudioSummaryTitle = "📝 會議摘要\n\n"

	// AudioSummaryFailedReply takes the summarization error.
	AudioSummaryFailedReply = "📝 摘要產生失敗：%v\n\n逐字稿已完整提供，可稍後再試。"

	AudioCancelledReply = "🛑 已取消錄音處理。"

	// AudioTimeoutReply takes the job timeout in minutes.
	AudioTimeoutReply = "⌛ 錄音處理超過 %.0f 分鐘仍未完成，已停止處理。請將檔案分段後再上傳。"

	AudioCancelNotFoundReply = "找不到可以取消的處理工作，可能已經完成。"

	AudioCancelPostbackPrefix = "cancel_job="
	AudioCancelButtonLabel    = "取消處理"

	DefaultAudioFilename = "語音訊息"
)

const (
	// StatusReplyFormat takes filename, state label and elapsed seconds.
	StatusReplyFormat = "📊 錄音處理狀態\n\n📁 檔案：%s\n🔄 狀態：%s\n⏱️ 已經過：%.0f 秒"

	StatusNoJobReply = "目前沒有錄音處理紀錄。傳送錄音檔即可開始轉文字！"

	StatusLabelProcessing = "處理中"
	StatusLabelCompleted  = "已完成"
	StatusLabelFailed     = "失敗"
	StatusLabelError      = "發生錯誤"
)

const (
	ImageReply = `🖼️ 收到您的圖片！

目前圖片分析功能正在開發中。
未來將支援：
• 文字識別(OCR)
• 圖表數據分析
• 文件內容解析

敬請期待！目前請用文字描述圖片內容，我可以協助分析。`

	FileUnsupportedReply = `📄 收到您的檔案！

目前檔案處理功能正在開發中。
未來將支援：
• Excel數據分析
• Word文檔處理
• PDF內容解析

敬請期待！目前請告訴我檔案內容，我可以協助分析和建議。`

	// PostbackEchoReply takes the postback data.
	PostbackEchoReply = "處理互動操作：%s"
)

const (
	HealthPageHTML = `
    <h1>🤖 工作助理 LINE Bot</h1>
    <p>✅ 服務正常運行中</p>
    <p>📱 掃描QR Code將Bot加為LINE好友開始使用</p>
    <p>🔧 狀態：準備就緒</p>
    `

	HealthTestMessage = "工作助理Bot運行正常"
)
