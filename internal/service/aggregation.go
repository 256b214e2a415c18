package service

import "certo/internal/model"

// Aggregate tallies answers per question. Results follow survey question order;
// within a question, declared options come first (zero counts included) and
// unknown labels follow in first-seen order. Unknown labels are counted and also
// reported as anomalies. The result depends only on its inputs and their order.
func Aggregate(survey *model.Survey, answers []*model.Answer) *model.SurveyResults {
	results := &model.SurveyResults{
		SurveyID:  survey.ID,
		Questions: make([]model.QuestionResult, len(survey.Questions)),
		Anomalies: []model.AggregationAnomaly{},
	}

	// label -> position in Options, per question
	positions := make([]map[string]int, len(survey.Questions))
	for i, q := range survey.Questions {
		r := model.QuestionResult{
			Question: q,
			Options:  make([]model.OptionCount, 0, len(q.Options)),
		}
		positions[i] = make(map[string]int, len(q.Options))
		for _, o := range q.Options {
			positions[i][o] = len(r.Options)
			r.Options = append(r.Options, model.OptionCount{Label: o})
		}
		if q.IsAC && q.ACCorrect != "" {
			r.Attention = &model.AttentionSummary{Correct: q.ACCorrect}
		}
		results.Questions[i] = r
	}

	for _, a := range answers {
		if a == nil {
			continue
		}
		if survey.ID != "" && a.SurveyID != "" && a.SurveyID != survey.ID {
			results.Anomalies = append(results.Anomalies, model.AggregationAnomaly{
				Kind:          model.AnomalyForeignAnswer,
				AnswerID:      a.ID,
				QuestionIndex: -1,
			})
			continue
		}
		results.TotalAnswers++

		counted := make(map[int]bool, len(a.Data))
		for _, entry := range a.Data {
			if entry.Index < 0 || entry.Index >= len(survey.Questions) {
				results.Anomalies = append(results.Anomalies, model.AggregationAnomaly{
					Kind:          model.AnomalyUnknownQuestion,
					AnswerID:      a.ID,
					QuestionIndex: entry.Index,
				})
				continue
			}
			// An answer counts once per question even if it repeats the entry.
			if counted[entry.Index] {
				continue
			}
			counted[entry.Index] = true

			q := &survey.Questions[entry.Index]
			r := &results.Questions[entry.Index]
			r.RespondentCount++

			if !q.Multiple && len(entry.Answers) > 1 {
				results.Anomalies = append(results.Anomalies, model.AggregationAnomaly{
					Kind:          model.AnomalyMultipleLabels,
					AnswerID:      a.ID,
					QuestionIndex: entry.Index,
				})
			}

			for _, label := range entry.Answers {
				pos, ok := positions[entry.Index][label]
				if !ok {
					pos = len(r.Options)
					positions[entry.Index][label] = pos
					r.Options = append(r.Options, model.OptionCount{Label: label, Unknown: true})
				}
				if r.Options[pos].Unknown {
					results.Anomalies = append(results.Anomalies, model.AggregationAnomaly{
						Kind:          model.AnomalyUnknownLabel,
						AnswerID:      a.ID,
						QuestionIndex: entry.Index,
						Label:         label,
					})
				}
				r.Options[pos].Count++
			}

			if r.Attention != nil {
				if len(entry.Answers) == 1 && entry.Answers[0] == q.ACCorrect {
					r.Attention.Passed++
				} else {
					r.Attention.Failed++
				}
			}
		}
	}

	return results
}
