package redis

const (
	// appendEventsScript appends events to the log with a monotonic sequence so
	// events sharing a timestamp keep insertion order
	appendEventsScript = `
local events_key = KEYS[1]    -- screenpledge:events
local seq_key = KEYS[2]       -- screenpledge:events:seq

-- ARGV holds (timestamp, payload) pairs
local added = 0
for i = 1, #ARGV, 2 do
  local seq = tostring(redis.call('INCR', seq_key))
  local member = string.rep('0', 20 - #seq) .. seq .. '|' .. ARGV[i + 1]
  redis.call('ZADD', events_key, ARGV[i], member)
  added = added + 1
end

return added
`

	// createResultScript stores a daily result only if none exists for the date
	createResultScript = `
local result_key = KEYS[1]    -- screenpledge:result:{date}
local index_key = KEYS[2]     -- screenpledge:results

if redis.call('EXISTS', result_key) == 1 then
  return 0
end

redis.call('HSET', result_key,
  'date', ARGV[1],
  'usage_ms', ARGV[2],
  'goal_type', ARGV[3],
  'timezone', ARGV[4],
  'computed_at', ARGV[5]
)

-- Dates share score 0 so the index is ordered lexically
redis.call('ZADD', index_key, 0, ARGV[1])

return 1
`
)
