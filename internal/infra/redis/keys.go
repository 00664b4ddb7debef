package redis

// Key layout:
//
//	qa:group:{groupID}                          hash {version, data}
//	qa:groups                                   set of group ids with a state
//	qa:resp:{groupID}                           zset of response sort keys (lex ordered)
//	qa:resp:{groupID}:{sortKey}                 response JSON
//	qa:parti:{groupID}                          hash participantID -> participant JSON
//	qa:score:{groupID}:{participant}#{session}  hash {score, scoreMax, responses, modifiedAt}
//	qa:scores:{groupID}                         set of participant#session pairs with a total
//	qa:question:{questionID}                    cached question JSON
//	qa:events:{groupID}                         pub/sub channel of group states
const keyPrefix = "qa:"

func groupKey(groupID string) string { return keyPrefix + "group:" + groupID }

func groupsKey() string { return keyPrefix + "groups" }

func responseIndexKey(groupID string) string { return keyPrefix + "resp:" + groupID }

func responseKey(groupID, sortKey string) string {
	return keyPrefix + "resp:" + groupID + ":" + sortKey
}

func participantsKey(groupID string) string { return keyPrefix + "parti:" + groupID }

func scoreKey(groupID, member string) string { return keyPrefix + "score:" + groupID + ":" + member }

func scoreIndexKey(groupID string) string { return keyPrefix + "scores:" + groupID }

func questionKey(questionID string) string { return keyPrefix + "question:" + questionID }

func eventsChannel(groupID string) string { return keyPrefix + "events:" + groupID }
