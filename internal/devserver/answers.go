package devserver

import (
	"fmt"
	"strings"

	"github.com/Zuo-Peng/oracle-destiny/internal/chart"
)

type rule struct {
	keywords []string
	planet   string
	answer   string
}

var rules = []rule{
	{[]string{"연애", "사랑", "결혼"}, "Venus", "금성이 %s에 머물러 있어요. 마음을 솔직하게 표현할수록 인연이 가까워집니다."},
	{[]string{"직업", "일", "커리어", "취업"}, "Saturn", "토성이 %s에서 꾸준함을 요구하고 있어요. 지금 쌓는 경험이 곧 기회가 됩니다."},
	{[]string{"재물", "돈", "금전"}, "Jupiter", "목성이 %s에 있어 재물 흐름이 넓어지는 시기예요. 충동적인 지출만 조심하세요."},
	{[]string{"건강"}, "Mars", "화성이 %s에 있어요. 에너지가 넘치는 만큼 충분한 휴식을 챙겨 주세요."},
}

const genericAnswer = "당신의 태양은 %s에 있어요. 그 별의 기운을 믿고 한 걸음씩 나아가 보세요."

// Answer picks a canned reply by keyword and names the matching planet's
// sign from the chart when it is present.
func Answer(question string, planets []chart.Placement) string {
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(question, kw) {
				return fmt.Sprintf(r.answer, signOf(planets, r.planet))
			}
		}
	}
	return fmt.Sprintf(genericAnswer, signOf(planets, "Sun"))
}

func signOf(planets []chart.Placement, name string) string {
	for _, p := range planets {
		if strings.EqualFold(p.Name, name) && p.Sign != "" {
			return p.Sign
		}
	}
	return "알 수 없는 자리"
}
