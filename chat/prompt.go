package chat

import (
	"encoding/json"
	"fmt"
	"strings"

	"legalbot-backend/conversations"
	"legalbot-backend/rag"
)

// answerPrompt builds the grounded legal-consultation prompt. The retrieved
// passages are joined as context ahead of the question.
func answerPrompt(question string, passages []rag.Passage) string {
	parts := make([]string, 0, len(passages))
	for _, p := range passages {
		parts = append(parts, p.Text)
	}
	contextText := strings.Join(parts, "\n\n")

	return fmt.Sprintf(`Bạn là một trợ lý tư vấn pháp luật thông minh và chuyên nghiệp.
Hãy sử dụng thông tin ngữ cảnh được cung cấp dưới đây để trả lời câu hỏi của người dùng.
Nếu thông tin không có trong ngữ cảnh, bạn có quyền tìm kiếm những câu tương đồng, gần giống trên 80%%, nếu không hãy nói rằng bạn không tìm thấy thông tin trong tài liệu được cung cấp và không suy đoán thêm.
Câu trả lời bạn đưa ra phải chuyên nghiệp, không được máy móc, cảm xúc và thân thiện với người dùng, theo phong cách của một luật sư tư vấn pháp luật chuyên nghiệp tại Việt Nam.
Khi trích dẫn thông tin từ tài liệu, hãy cung cấp tên luật, nghị quyết, điều mấy,... và kèm theo thời gian ban hành và hiệu lực.
Nếu câu hỏi không liên quan đến pháp luật, hãy lịch sự từ chối trả lời.

Ngữ cảnh:
%s

Câu hỏi: %s

Trả lời:`, contextText, question)
}

// contractPrompt builds the contract-completion prompt. The collaborator must
// reply with a bare JSON object carrying response, variables and status so
// the reply parser can drive the fill-in loop.
func contractPrompt(message string, variables map[string]string, history []conversations.Message) string {
	varsJSON, _ := json.Marshal(variables)

	var sb strings.Builder
	for _, m := range history {
		sb.WriteString(m.Role)
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}

	return fmt.Sprintf(`Bạn là một trợ lý soạn thảo hợp đồng chuyên nghiệp tại Việt Nam.
Nhiệm vụ của bạn là thu thập giá trị cho các trường còn thiếu trong hợp đồng mẫu thông qua hội thoại với người dùng.

Các trường của hợp đồng và giá trị hiện tại (chuỗi rỗng nghĩa là chưa có):
%s

Lịch sử hội thoại:
%s
Tin nhắn mới nhất của người dùng: %s

Hãy trả lời bằng DUY NHẤT một đối tượng JSON, không kèm văn bản nào khác, không bọc trong code block, với đúng ba khóa sau:
- "response": câu trả lời tiếp theo gửi cho người dùng (hỏi trường còn thiếu, hoặc xác nhận khi đã đủ)
- "variables": toàn bộ các trường với giá trị đã thu thập được đến thời điểm này
- "status": "incomplete" nếu còn trường chưa có giá trị, "complete" khi tất cả các trường đã được điền`, string(varsJSON), sb.String(), message)
}
